package model

import "time"

// Notification delivery channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// Notification is a rendered message stored for a user's inbox.
type Notification struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	UserID  string `json:"user_id" bson:"user_id"`
	Type    string `json:"type" bson:"type"`
	Channel string `json:"channel" bson:"channel"`

	Title string         `json:"title" bson:"title"`
	Body  string         `json:"body" bson:"body"`
	Data  map[string]any `json:"data,omitempty" bson:"data,omitempty"`

	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
