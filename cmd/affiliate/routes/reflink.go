package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/cmd/affiliate/container"
	"github.com/finvault/affiliate/cmd/affiliate/handlers"
)

// RegisterReflinkRoutes registers all reflink lifecycle routes
func RegisterReflinkRoutes(g *echo.Group, c *container.Container) {
	h := handlers.NewReflinkHandler(c.ReflinkService)

	reflinks := g.Group("/reflinks")
	{
		reflinks.GET("", h.ListReflinks)             // GET /api/v1/reflinks
		reflinks.POST("", h.CreateReflink)           // POST /api/v1/reflinks
		reflinks.GET("/:refid", h.GetReflink)        // GET /api/v1/reflinks/7
		reflinks.PATCH("/:refid", h.EditReflink)     // PATCH /api/v1/reflinks/7
		reflinks.DELETE("/:refid", h.DeleteReflink)  // DELETE /api/v1/reflinks/7
	}
}
