// Package refreshtokens declares the server-side repository contract for
// refresh-token records in persistent storage. Records are keyed by the
// SHA-256 digest of the raw token; the raw value is never stored.
package refreshtokens

import (
	"context"
	"time"

	"authkeeper/internal/server/models"
)

// Repository defines operations for recording, retrieving, and revoking
// refresh-token records.
type Repository interface {
	// Create stores a new record for userID with an expiry of now+validity.
	Create(ctx context.Context, userID int64, digest string, validity time.Duration) error

	// FindLiveByUser returns the most recent unexpired record for userID.
	// Implementations return a not-found error when no live record exists.
	FindLiveByUser(ctx context.Context, userID int64) (*models.RefreshToken, error)

	// DeleteByDigest removes the record matching digest and reports how many
	// rows were removed. Zero rows is not an error; it means the token was
	// never issued, already rotated, or already revoked.
	DeleteByDigest(ctx context.Context, digest string) (int64, error)

	// DeleteByUser removes every record belonging to userID and reports how
	// many rows were removed.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
