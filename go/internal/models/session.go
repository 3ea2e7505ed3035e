package models

import "time"

// Session maps two opaque credentials to the owning user.
// SessionID is held in a cookie for HTTP requests, Token is used for the live channel handshake.
type Session struct {
	SessionID string    `json:"-"`
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"` // stored as text, validated as a UUID on resolution
	CreatedAt time.Time `json:"created_at"`
}
