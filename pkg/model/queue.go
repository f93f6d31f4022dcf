package model

import "time"

// QueueEntry is one user's place in a lock's FIFO queue. At most one
// entry per (lock, user) pair; position is by JoinedAt ascending.
type QueueEntry struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty"`
	LockID   string `json:"lock_id" bson:"lock_id"`
	UserID   string `json:"user_id" bson:"user_id"`
	Notified bool   `json:"notified" bson:"notified"`

	JoinedAt  time.Time `json:"joined_at" bson:"joined_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// InterestEntry records a user asking to be told when a zone or the
// market gains a free lock. Unlike a queue entry it grants no claim.
type InterestEntry struct {
	ID     string `json:"id,omitempty" bson:"_id,omitempty"`
	UserID string `json:"user_id" bson:"user_id"`
	ZoneID string `json:"zone_id,omitempty" bson:"zone_id,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
