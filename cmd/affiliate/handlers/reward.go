package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/cmd/affiliate/middleware"
	"github.com/finvault/affiliate/cmd/affiliate/service"
)

// RewardHandler handles per-settlement reward requests
type RewardHandler struct {
	rewards *service.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewards *service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// ListRewards lists the reward rows of one settlement
// GET /api/v1/reflinks/:refid/settlements/:afseid/rewards
func (h *RewardHandler) ListRewards(c echo.Context) error {
	uid := middleware.GetUID(c)

	refid, err := refidParam(c)
	if err != nil {
		return err
	}
	afseid, err := afseidParam(c)
	if err != nil {
		return err
	}

	rewards, err := h.rewards.Rewards(c.Request().Context(), uid, refid, afseid)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"rewards": rewards,
	})
}
