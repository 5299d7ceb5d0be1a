package models

// MaxLevel is the depth cap of the affiliation graph. A signup extends the
// referrer's pyramids one level deeper, never past this bound.
const MaxLevel int16 = 4

// Affiliation is one edge of the affiliate graph: slaveUID is a member of
// reflink Refid's pyramid at the given level (1 = direct referral).
// Edges form an immutable ledger: they are only ever inserted, at most one
// per (refid, slave_uid) pair, and survive reflink deactivation.
type Affiliation struct {
	Refid      int64 `json:"refid"`
	SlaveUID   int64 `json:"slaveUid"`
	SlaveLevel int16 `json:"slaveLevel"`
}

// MemberCounts maps level (1..MaxLevel) to the number of members at that
// level. All levels are always present, absent ones as zero.
type MemberCounts map[int16]int64

// NewMemberCounts returns counts with every level zeroed
func NewMemberCounts() MemberCounts {
	counts := make(MemberCounts, MaxLevel)
	for level := int16(1); level <= MaxLevel; level++ {
		counts[level] = 0
	}
	return counts
}
