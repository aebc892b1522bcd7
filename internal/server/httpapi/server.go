// Package httpapi exposes the credential lifecycle over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"authkeeper/internal/logging"
	"authkeeper/internal/server/federation"
	"authkeeper/internal/server/models"
	"authkeeper/internal/server/services"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// UserAuthenticator is the account-facing surface consumed by the handlers.
type UserAuthenticator interface {
	Register(ctx context.Context, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	FederatedLogin(ctx context.Context, profile *federation.Profile) (*services.TokenPair, error)
}

// TokenOperator is the credential-lifecycle surface consumed by the handlers.
type TokenOperator interface {
	VerifyAccess(token string) (models.Identity, error)
	Rotate(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID int64) error
	ActiveSession(ctx context.Context, userID int64) (*models.RefreshToken, error)
}

// CodeExchanger trades an identity-provider authorization code for a verified
// profile.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*federation.Profile, error)
}

type Server struct {
	address string
	logger  logging.Logger
	users   UserAuthenticator
	tokens  TokenOperator
	google  CodeExchanger // nil when federation is not configured
	db      *sql.DB
}

func NewServer(address string, l logging.Logger, users UserAuthenticator, tokens TokenOperator, google CodeExchanger, db *sql.DB) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "http_server"),
		users:   users,
		tokens:  tokens,
		google:  google,
		db:      db,
	}
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/google-login", s.handleGoogleLogin).Methods(http.MethodPost)
	api.Handle("/auth/logout-all", s.requireAccessToken(http.HandlerFunc(s.handleLogoutAll))).Methods(http.MethodPost)
	api.Handle("/me", s.requireAccessToken(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)
	api.Handle("/session", s.requireAccessToken(http.HandlerFunc(s.handleSession))).Methods(http.MethodGet)
	api.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	return r
}

// Run starts the HTTP server and shuts it down gracefully once ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
