package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/cmd/affiliate/middleware"
	"github.com/finvault/affiliate/cmd/affiliate/service"
	"github.com/finvault/affiliate/common/apperr"
)

// SettlementHandler handles settlement read-model requests
type SettlementHandler struct {
	settlements *service.SettlementService
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(settlements *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// ListAggSettlements lists the caller's per-month settlement totals
// GET /api/v1/agg-settlements?limit=&offset=
func (h *SettlementHandler) ListAggSettlements(c echo.Context) error {
	uid := middleware.GetUID(c)
	page := pageFromQuery(c)

	settlements, err := h.settlements.AggSettlements(c.Request().Context(), uid, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"settlements": settlements,
		"more":        page.More,
	})
}

// GetAggSettlement retrieves the caller's total for one month
// GET /api/v1/agg-settlements/:year/:month
func (h *SettlementHandler) GetAggSettlement(c echo.Context) error {
	uid := middleware.GetUID(c)

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return apperr.Validation("year")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return apperr.Validation("month")
	}

	settlement, err := h.settlements.AggSettlement(c.Request().Context(), uid, year, month)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, settlement)
}

// ListSettlements lists one reflink's settlement rows
// GET /api/v1/reflinks/:refid/settlements?limit=&offset=
func (h *SettlementHandler) ListSettlements(c echo.Context) error {
	uid := middleware.GetUID(c)
	page := pageFromQuery(c)

	refid, err := refidParam(c)
	if err != nil {
		return err
	}

	settlements, err := h.settlements.Settlements(c.Request().Context(), uid, refid, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"settlements": settlements,
		"more":        page.More,
	})
}

// GetSettlement retrieves one settlement row
// GET /api/v1/reflinks/:refid/settlements/:afseid
func (h *SettlementHandler) GetSettlement(c echo.Context) error {
	uid := middleware.GetUID(c)

	refid, err := refidParam(c)
	if err != nil {
		return err
	}
	afseid, err := afseidParam(c)
	if err != nil {
		return err
	}

	settlement, err := h.settlements.Settlement(c.Request().Context(), uid, refid, afseid)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, settlement)
}

// afseidParam parses the :afseid path parameter
func afseidParam(c echo.Context) (int64, error) {
	afseid, err := strconv.ParseInt(c.Param("afseid"), 10, 64)
	if err != nil || afseid < 1 {
		return 0, apperr.Validation("afseid")
	}
	return afseid, nil
}
