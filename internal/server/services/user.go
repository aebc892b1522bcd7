package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"authkeeper/internal/common"
	"authkeeper/internal/server/federation"
	"authkeeper/internal/server/models"
	"authkeeper/internal/server/repositories/repomanager"

	"golang.org/x/crypto/bcrypt"
)

// UserService provides account-related operations:
//   - Register: create a user and mint a first token pair
//   - Login: verify credentials and mint tokens
//   - FederatedLogin: find-or-create a user from a verified provider profile
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
}

// NewUserService constructs a UserService on top of the token service.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
	}
}

// Register creates a new user with a bcrypt-hashed password and returns a
// freshly issued token pair. The display name defaults to the local part of
// the email. Duplicate emails yield common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, common.ErrMalformedInput
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{
		Name:         nameFromEmail(email),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}

	return s.tokens.Issue(ctx, user.Identity())
}

// Login verifies the password against the stored bcrypt hash and, on success,
// returns a new token pair. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, common.ErrMalformedInput
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}

	return s.tokens.Issue(ctx, user.Identity())
}

// FederatedLogin finds or creates the user matching a verified identity
// provider profile, then issues a token pair. Accounts created this way get a
// random unguessable password hash, so password login stays impossible until
// the user sets one.
func (s *UserService) FederatedLogin(ctx context.Context, profile *federation.Profile) (*TokenPair, error) {
	if profile == nil || profile.Email == "" {
		return nil, common.ErrMalformedInput
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, profile.Email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInternal
		}

		name := profile.Name
		if name == "" {
			name = nameFromEmail(profile.Email)
		}
		random, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, common.ErrorInternal
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(random), bcrypt.DefaultCost)
		if err != nil {
			return nil, common.ErrorInternal
		}

		user, err = repo.Create(ctx, &models.User{
			Name:         name,
			Email:        profile.Email,
			PasswordHash: hash,
		})
		if err != nil {
			return nil, common.ErrorInternal
		}
	}

	return s.tokens.Issue(ctx, user.Identity())
}

func nameFromEmail(email string) string {
	return strings.SplitN(email, "@", 2)[0]
}
