package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"authkeeper/internal/common"
	"authkeeper/internal/dbx"
	"authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh-token record for userID with an expiry time of
// now+validity.
func (r *PostgresRepository) Create(ctx context.Context, userID int64, digest string, validity time.Duration) error {
	query := `
		INSERT INTO refresh_tokens (user_id, digest, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, digest, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindLiveByUser returns the most recent unexpired record for userID.
// If no live record exists, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindLiveByUser(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, digest, expires_at
		FROM refresh_tokens
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY expires_at DESC
		LIMIT 1
	`
	token := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&token.ID, &token.UserID, &token.Digest, &token.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

// DeleteByDigest removes the record matching digest and returns the number of
// rows removed. The rows-affected count lets callers use a single round trip
// as an atomic compare-and-delete.
func (r *PostgresRepository) DeleteByDigest(ctx context.Context, digest string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE digest = $1
	`
	res, err := r.db.ExecContext(ctx, query, digest)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}

// DeleteByUser removes every record belonging to userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}
