package service

import (
	"context"
	"strconv"

	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
)

// RewardStore is the read surface over per-settlement reward rows
type RewardStore interface {
	ListBySettlement(ctx context.Context, afseid int64) ([]models.Reward, error)
}

// AssetResolver resolves an asset id to its display symbol
type AssetResolver interface {
	AssetSymbol(ctx context.Context, assetID int64) (string, error)
}

// RewardService renders the reward rows belonging to one settlement
type RewardService struct {
	rewards     RewardStore
	settlements *SettlementService
	assets      AssetResolver
	log         *logger.Logger
}

// NewRewardService creates a new reward service
func NewRewardService(rewards RewardStore, settlements *SettlementService, assets AssetResolver, log *logger.Logger) *RewardService {
	return &RewardService{
		rewards:     rewards,
		settlements: settlements,
		assets:      assets,
		log:         log,
	}
}

// Rewards returns the reward rows of one settlement belonging to a reflink
// owned by the caller. A failed symbol lookup degrades to the numeric asset
// id rather than failing the whole listing.
func (s *RewardService) Rewards(ctx context.Context, callerUID, refid, afseid int64) ([]models.Reward, error) {
	// Reuses the settlement ownership and existence checks
	if _, err := s.settlements.Settlement(ctx, callerUID, refid, afseid); err != nil {
		return nil, err
	}

	rewards, err := s.rewards.ListBySettlement(ctx, afseid)
	if err != nil {
		return nil, err
	}

	for i := range rewards {
		symbol, err := s.assets.AssetSymbol(ctx, rewards[i].AssetID)
		if err != nil {
			s.log.Warn("asset symbol lookup failed",
				"assetid", rewards[i].AssetID,
				"error", err)
			symbol = strconv.FormatInt(rewards[i].AssetID, 10)
		}
		rewards[i].Asset = symbol
	}

	return rewards, nil
}
