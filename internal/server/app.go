// Package server initializes and runs the authkeeper server: it opens the
// database, applies migrations, wires the services, and starts the HTTP API
// with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"authkeeper/internal/logging"
	"authkeeper/internal/server/config"
	"authkeeper/internal/server/federation"
	"authkeeper/internal/server/httpapi"
	"authkeeper/internal/server/repositories/repomanager"
	"authkeeper/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	tokenService *services.TokenService
	userService  *services.UserService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	ts := services.NewTokenService(db, m, cfg)
	us := services.NewUserService(db, m, ts)

	return &App{config: cfg, logger: logger, db: db, tokenService: ts, userService: us}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// googleProvider returns the federated-login provider, or nil when federation
// is not configured. Discovery failure is logged and login degrades to
// password-only rather than aborting startup.
func (app *App) googleProvider(ctx context.Context) httpapi.CodeExchanger {
	if app.config.GoogleClientID == "" {
		return nil
	}

	p, err := federation.NewGoogleProvider(ctx,
		app.config.GoogleClientID, app.config.GoogleClientSecret, app.config.GoogleRedirectURL)
	if err != nil {
		app.logger.Warn(ctx, "federated login disabled", "error", err.Error())
		return nil
	}
	return p
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddr, app.logger,
		app.userService, app.tokenService, app.googleProvider(ctx), app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
