package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/cmd/affiliate/middleware"
	"github.com/finvault/affiliate/cmd/affiliate/service"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/pagination"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// ReflinkHandler handles reflink lifecycle requests
type ReflinkHandler struct {
	reflinks *service.ReflinkService
}

// NewReflinkHandler creates a new reflink handler
func NewReflinkHandler(reflinks *service.ReflinkService) *ReflinkHandler {
	return &ReflinkHandler{reflinks: reflinks}
}

type reflinkRequest struct {
	Description string `json:"description"`
}

// ListReflinks lists the caller's reflinks with member counts
// GET /api/v1/reflinks?active=&limit=&offset=
func (h *ReflinkHandler) ListReflinks(c echo.Context) error {
	uid := middleware.GetUID(c)
	page := pageFromQuery(c)

	// Deactivated reflinks stay queryable for their history, but the
	// default listing shows only live ones
	activeOnly := true
	active := &activeOnly
	switch raw := c.QueryParam("active"); raw {
	case "":
	case "all":
		active = nil
	default:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Validation("active")
		}
		active = &parsed
	}

	reflinks, err := h.reflinks.List(c.Request().Context(), uid, active, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"reflinks": reflinks,
		"more":     page.More,
	})
}

// GetReflink retrieves one of the caller's reflinks
// GET /api/v1/reflinks/:refid
func (h *ReflinkHandler) GetReflink(c echo.Context) error {
	uid := middleware.GetUID(c)

	refid, err := refidParam(c)
	if err != nil {
		return err
	}

	reflink, err := h.reflinks.Get(c.Request().Context(), uid, refid)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reflink)
}

// CreateReflink creates a new reflink for the caller
// POST /api/v1/reflinks
func (h *ReflinkHandler) CreateReflink(c echo.Context) error {
	uid := middleware.GetUID(c)

	var req reflinkRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("description")
	}

	reflink, err := h.reflinks.Create(c.Request().Context(), uid, req.Description)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, reflink)
}

// EditReflink changes a reflink's description
// PATCH /api/v1/reflinks/:refid
func (h *ReflinkHandler) EditReflink(c echo.Context) error {
	uid := middleware.GetUID(c)

	refid, err := refidParam(c)
	if err != nil {
		return err
	}

	var req reflinkRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("description")
	}

	if err := h.reflinks.Edit(c.Request().Context(), uid, refid, req.Description); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"refid": refid})
}

// DeleteReflink deactivates a reflink
// DELETE /api/v1/reflinks/:refid
func (h *ReflinkHandler) DeleteReflink(c echo.Context) error {
	uid := middleware.GetUID(c)

	refid, err := refidParam(c)
	if err != nil {
		return err
	}

	if err := h.reflinks.Delete(c.Request().Context(), uid, refid); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// refidParam parses the :refid path parameter
func refidParam(c echo.Context) (int64, error) {
	refid, err := strconv.ParseInt(c.Param("refid"), 10, 64)
	if err != nil || refid < 1 {
		return 0, apperr.Validation("refid")
	}
	return refid, nil
}

// pageFromQuery builds offset pagination from limit/offset query params
func pageFromQuery(c echo.Context) *pagination.Offset {
	return pagination.NewOffset(
		defaultPageLimit,
		maxPageLimit,
		c.QueryParam("limit"),
		c.QueryParam("offset"),
	)
}
