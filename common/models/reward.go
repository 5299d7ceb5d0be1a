package models

import "github.com/shopspring/decimal"

// Reward is one per-level, per-asset payout row belonging to a settlement.
// Rows are produced by the external settlement job; the service resolves
// AssetID to a human symbol when rendering.
type Reward struct {
	Type       string          `json:"type"`
	SlaveLevel int16           `json:"slaveLevel"`
	AssetID    int64           `json:"-"`
	Asset      string          `json:"asset"`
	Amount     decimal.Decimal `json:"amount"`
}
