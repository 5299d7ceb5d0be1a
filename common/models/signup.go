package models

// SignupEvent is the payload delivered by the signup pipeline when a user
// registers through a reflink. Delivery is at-least-once; processing must
// be idempotent.
type SignupEvent struct {
	UID   int64 `json:"uid"`
	Refid int64 `json:"refid"`
}
