// Package auth implements stateless signing and verification of credentials.
// Access and refresh credentials are HS256 JWTs signed with two independent
// secrets, so possession of one signing key cannot forge the other class.
package auth

import (
	"errors"
	"time"

	"authkeeper/internal/common"
	"authkeeper/internal/server/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the principal identity alongside the registered claim set.
// The jti claim is a fresh UUID per token, so two tokens minted for the same
// user in the same second still serialize (and hash) differently.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func GenerateToken(identity models.Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: identity.ID,
		Name:   identity.Name,
		Email:  identity.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetIdentityFromToken verifies signature and expiry against secretKey and
// returns the embedded identity. Expired tokens yield common.ErrTokenExpired;
// any other verification failure yields common.ErrInvalidSignature.
func GetIdentityFromToken(tokenString string, secretKey []byte) (models.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, common.ErrTokenExpired
		}
		return models.Identity{}, common.ErrInvalidSignature
	}

	if !token.Valid {
		return models.Identity{}, common.ErrInvalidSignature
	}

	return models.Identity{ID: claims.UserID, Name: claims.Name, Email: claims.Email}, nil
}
