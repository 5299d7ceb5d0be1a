package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/cmd/affiliate/container"
	"github.com/finvault/affiliate/cmd/affiliate/handlers"
)

// RegisterSettlementRoutes registers settlement and reward read routes
func RegisterSettlementRoutes(g *echo.Group, c *container.Container) {
	sh := handlers.NewSettlementHandler(c.SettlementService)
	rh := handlers.NewRewardHandler(c.RewardService)

	agg := g.Group("/agg-settlements")
	{
		agg.GET("", sh.ListAggSettlements)          // GET /api/v1/agg-settlements
		agg.GET("/:year/:month", sh.GetAggSettlement) // GET /api/v1/agg-settlements/2026/8
	}

	perReflink := g.Group("/reflinks/:refid/settlements")
	{
		perReflink.GET("", sh.ListSettlements)                  // GET /api/v1/reflinks/7/settlements
		perReflink.GET("/:afseid", sh.GetSettlement)            // GET /api/v1/reflinks/7/settlements/3
		perReflink.GET("/:afseid/rewards", rh.ListRewards)      // GET /api/v1/reflinks/7/settlements/3/rewards
	}
}
