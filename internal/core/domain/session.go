package domain

import "time"

// Session binds an opaque bearer token to a user. Only TokenHash is
// persisted; Token is populated when the session is minted.
type Session struct {
	Token     string    `json:"sessionId,omitempty"`
	TokenHash string    `json:"-"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
