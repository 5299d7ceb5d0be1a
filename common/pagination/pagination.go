package pagination

import (
	"fmt"
	"strconv"
)

// Offset implements offset/limit paging with a "more results" flag.
// Repositories append SQL() to their query, which over-fetches one row;
// Trim detects the extra row, drops it and records More.
type Offset struct {
	Limit  int
	Offset int
	More   bool
}

// NewOffset parses limit/offset query parameters, applying the default
// and capping at max. Invalid values fall back to the default.
func NewOffset(defaultLimit, maxLimit int, limitParam, offsetParam string) *Offset {
	limit := defaultLimit
	if limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if offsetParam != "" {
		if v, err := strconv.Atoi(offsetParam); err == nil && v >= 0 {
			offset = v
		}
	}

	return &Offset{
		Limit:  limit,
		Offset: offset,
	}
}

// SQL returns the LIMIT/OFFSET clause, requesting one extra row
func (p *Offset) SQL() string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit+1, p.Offset)
}

// TrimCount records whether an over-fetch happened and returns the number
// of rows to keep
func (p *Offset) TrimCount(fetched int) int {
	if fetched > p.Limit {
		p.More = true
		return p.Limit
	}
	return fetched
}
