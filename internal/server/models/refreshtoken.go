package models

import "time"

// RefreshToken is the persisted record backing an issued refresh token.
// Only the SHA-256 digest of the raw token is stored, never the token itself.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Digest    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
