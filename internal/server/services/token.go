// Package services contains server-side business logic. This file implements
// TokenService, the credential lifecycle core: issuing access/refresh token
// pairs, verifying access tokens, and rotating or revoking refresh tokens.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"authkeeper/internal/common"
	"authkeeper/internal/dbx"
	"authkeeper/internal/server/auth"
	"authkeeper/internal/server/config"
	"authkeeper/internal/server/models"
	"authkeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService implements the credential lifecycle:
//   - Issue: mint a signed token pair and persist the refresh-token digest
//   - VerifyAccess: stateless verification of an access token
//   - Rotate: single-use exchange of a refresh token for a new pair
//   - Revoke / RevokeAll: invalidate refresh tokens
//
// Access and refresh tokens are signed with independent secrets. Refresh
// tokens are persisted only as SHA-256 digests; rotation is an atomic
// delete-by-digest followed by a re-issue inside one transaction, so a given
// refresh token can be exchanged at most once.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		accessSecret:                 []byte(cfg.AccessSecretKey),
		refreshSecret:                []byte(cfg.RefreshSecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// TokenDigest returns the hex-encoded SHA-256 digest of a raw token string.
// This is the only form in which refresh tokens are ever persisted.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue mints a new token pair for identity and records the refresh-token
// digest. The store write must succeed before the pair is returned: a pair is
// never handed out without a matching durable record.
func (s *TokenService) Issue(ctx context.Context, identity models.Identity) (*TokenPair, error) {
	return s.issue(ctx, identity, s.db)
}

// VerifyAccess verifies an access token's signature and expiry and returns the
// embedded identity. No store interaction takes place.
func (s *TokenService) VerifyAccess(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, common.ErrMalformedInput
	}
	return auth.GetIdentityFromToken(token, s.accessSecret)
}

// Rotate exchanges a refresh token for a fresh pair. Signature and expiry are
// checked before any store access. The record matching the presented token's
// digest is then deleted and a replacement pair is issued inside the same
// transaction; if no record was removed the token is unknown, already rotated,
// or revoked, and the rotation fails with common.ErrUnknownToken.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrMalformedInput
	}

	identity, err := auth.GetIdentityFromToken(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	digest := TokenDigest(refreshToken)

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)

		// Compare-and-delete: the rows-affected count decides the race between
		// two concurrent rotations of the same token. Exactly one wins.
		affected, err := repoTx.DeleteByDigest(ctx, digest)
		if err != nil {
			return fmt.Errorf("%w: deleting refresh token: %v", common.ErrStorage, err)
		}
		if affected == 0 {
			return common.ErrUnknownToken
		}

		var issueErr error
		pair, issueErr = s.issue(ctx, identity, tx)
		return issueErr
	}); err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke deletes the record matching the presented refresh token's digest.
// It is idempotent: revoking a token that was never issued, already rotated,
// or already revoked succeeds. The token is deliberately not verified first,
// since deleting zero rows is harmless.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return common.ErrMalformedInput
	}

	repo := s.repomanager.RefreshTokens(s.db)
	if _, err := repo.DeleteByDigest(ctx, TokenDigest(refreshToken)); err != nil {
		return fmt.Errorf("%w: deleting refresh token: %v", common.ErrStorage, err)
	}
	return nil
}

// RevokeAll deletes every live refresh record belonging to userID
// ("log out everywhere").
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) error {
	repo := s.repomanager.RefreshTokens(s.db)
	if _, err := repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: deleting refresh tokens: %v", common.ErrStorage, err)
	}
	return nil
}

// ActiveSession returns the most recent live refresh record for userID, or
// common.ErrorNotFound when the user holds no live session.
func (s *TokenService) ActiveSession(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	repo := s.repomanager.RefreshTokens(s.db)
	return repo.FindLiveByUser(ctx, userID)
}

// issue mints and persists a pair using the given handle, which may be a
// transaction when called from Rotate.
func (s *TokenService) issue(ctx context.Context, identity models.Identity, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(identity, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := auth.GenerateToken(identity, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.RefreshTokens(db)
	if err := repo.Create(ctx, identity.ID, TokenDigest(refresh), s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("%w: recording refresh token: %v", common.ErrStorage, err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
