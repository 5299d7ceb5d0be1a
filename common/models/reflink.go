package models

import "regexp"

// descriptionPattern is the only accepted shape for a reflink description
var descriptionPattern = regexp.MustCompile(`^[A-Za-z0-9 ]{1,255}$`)

// Reflink is a named referral link owned by one user.
// Reflinks are never hard-deleted; deletion clears the active flag so the
// affiliation history keyed by refid stays intact.
type Reflink struct {
	Refid       int64  `json:"refid"`
	OwnerUID    int64  `json:"uid"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// ValidDescription reports whether a reflink description is acceptable
// (1-255 chars, alphanumeric and space only)
func ValidDescription(desc string) bool {
	return descriptionPattern.MatchString(desc)
}

// ReflinkFilter narrows List queries
type ReflinkFilter struct {
	OwnerUID *int64
	Active   *bool
}

// ReflinkWithMembers is a reflink plus its per-level member counts
type ReflinkWithMembers struct {
	Reflink
	Members MemberCounts `json:"members"`
}
