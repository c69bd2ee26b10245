package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/admindash/internal/auth/http"
	"github.com/aussiebroadwan/admindash/internal/auth/service"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/admindash/pkg/cryptox"
	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application owns the admin dashboard backend and all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "admind",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	access, refresh, err := app.initSigners()
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices(access, refresh)

	if app.cfg.Seed {
		if err := app.seed(); err != nil {
			_ = app.db.Close()
			return nil, err
		}
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the routed handler, mostly for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("admin dashboard starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down admin dashboard...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("admin dashboard stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initSigners builds the access and refresh signers. Missing secrets are
// generated per boot, which invalidates every session on restart.
func (app *Application) initSigners() (jwtx.TokenSigner, jwtx.TokenSigner, error) {
	accessSecret, err := app.secretOrGenerate("AUTH_ACCESS_SECRET", app.cfg.AccessSecret)
	if err != nil {
		return nil, nil, err
	}
	refreshSecret, err := app.secretOrGenerate("AUTH_REFRESH_SECRET", app.cfg.RefreshSecret)
	if err != nil {
		return nil, nil, err
	}

	access, err := jwtx.NewHS256Signer([]byte(accessSecret), app.cfg.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("access signer: %w", err)
	}
	refresh, err := jwtx.NewHS256Signer([]byte(refreshSecret), app.cfg.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh signer: %w", err)
	}
	return access, refresh, nil
}

func (app *Application) secretOrGenerate(name, secret string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", name, err)
	}
	app.logger.Warn("secret not configured, using a per-boot secret; sessions will not survive a restart", "key", name)
	return generated, nil
}

func (app *Application) initServices(access, refresh jwtx.TokenSigner) {
	app.authService = &service.AuthService{
		Store:         app.db,
		AccessSigner:  access,
		RefreshSigner: refresh,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	}
	app.userService = service.NewUserService(app.db)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) seed() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = slogx.WithContext(ctx, app.logger)

	seeder := &service.SeedService{Store: app.db}
	seeded, err := seeder.SeedIfEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed directory: %w", err)
	}
	if seeded {
		app.logger.Info("seeded empty directory", "login", service.SeedAdminEmail)
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.AuthService = app.authService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
