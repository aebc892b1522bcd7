// Package users declares the repository contract for user accounts.
package users

import (
	"context"

	"authkeeper/internal/server/models"
)

// Repository defines storage operations for user accounts.
type Repository interface {
	// Create inserts a new user and returns it with the assigned ID.
	// A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks up a user by email. Absence yields common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
