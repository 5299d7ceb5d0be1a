package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement is one externally-computed monthly rollup of a reflink's
// pyramid. This service only reads these rows.
type Settlement struct {
	Afseid       int64           `json:"afseid"`
	Refid        int64           `json:"refid"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	MonthDate    time.Time       `json:"-"`
	RefCoinEquiv decimal.Decimal `json:"refCoinEquiv"`
	Acquisition  MemberCounts    `json:"acquisition"`
}

// AggSettlement is a per-month aggregate across all of an owner's reflinks
type AggSettlement struct {
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	MonthDate    time.Time       `json:"-"`
	RefCoinEquiv decimal.Decimal `json:"refCoinEquiv"`
	Acquisition  MemberCounts    `json:"acquisition"`
}

// SettlementFilter narrows settlement queries
type SettlementFilter struct {
	Refid    *int64
	OwnerUID *int64
	Active   *bool
}

// ValidYear reports whether a settlement year is in the accepted range
func ValidYear(year int) bool {
	return year >= 2020 && year <= 9999
}

// ValidMonth reports whether a month number is valid
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// ValidAfseid reports whether a settlement id is well-formed
func ValidAfseid(afseid int64) bool {
	return afseid >= 1
}
