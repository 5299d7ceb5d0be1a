package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/db"
	"github.com/finvault/affiliate/common/models"
)

// RewardRepository reads the per-level reward breakdowns produced by the
// external settlement job. Strictly read-only.
type RewardRepository struct {
	db *db.DB
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(database *db.DB) *RewardRepository {
	return &RewardRepository{db: database}
}

// ListBySettlement returns all reward rows of one settlement, ordered by
// (reward_type, slave_level, assetid)
func (r *RewardRepository) ListBySettlement(ctx context.Context, afseid int64) ([]models.Reward, error) {
	query := `
		SELECT reward_type, slave_level, assetid, reward::text
		FROM affiliate_rewards
		WHERE afseid = $1
		ORDER BY reward_type ASC,
		         slave_level ASC,
		         assetid ASC
	`

	rows, err := r.db.Query(ctx, query, afseid)
	if err != nil {
		return nil, apperr.Transient("query rewards", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		var amount string

		if err := rows.Scan(&reward.Type, &reward.SlaveLevel, &reward.AssetID, &amount); err != nil {
			return nil, apperr.Transient("scan reward", err)
		}

		reward.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, apperr.Transient("parse reward amount", err)
		}

		rewards = append(rewards, reward)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate rewards", err)
	}

	return rewards, nil
}
