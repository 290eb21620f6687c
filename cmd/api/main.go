package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/config"
	"github.com/crucial707/cashcard/internal/db"
	"github.com/crucial707/cashcard/internal/models"
	"github.com/crucial707/cashcard/internal/repo"
	"github.com/crucial707/cashcard/internal/scheduler"
	"github.com/jmoiron/sqlx"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.LogFormat, cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("cashcard api exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database FIRST
	database, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return err
	}

	dir, err := newDirectory(ctx, cfg, database)
	if err != nil {
		return err
	}

	purge, err := scheduler.StartAuditPurge(
		repo.NewAuditRepo(database),
		cfg.AuditPurgeCron,
		time.Duration(cfg.AuditRetentionDays)*24*time.Hour,
	)
	if err != nil {
		return err
	}
	defer func() { <-purge.Stop().Done() }()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, dir, cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port, "tls", cfg.TLSEnabled())
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// newDirectory selects the credential directory. Users from USERS_FILE are
// loaded into memory or upserted into postgres; with no file the in-memory
// directory falls back to the development users.
func newDirectory(ctx context.Context, cfg config.Config, database *sqlx.DB) (auth.Directory, error) {
	var users []models.User
	if cfg.UsersFile != "" {
		var err error
		users, err = config.LoadUsers(cfg.UsersFile)
		if err != nil {
			return nil, err
		}
	}

	if cfg.UserStore == config.UserStorePostgres {
		userRepo := repo.NewUserRepo(database)
		for _, u := range users {
			if err := userRepo.Upsert(ctx, u); err != nil {
				return nil, err
			}
		}
		slog.Info("user directory", "store", cfg.UserStore, "seeded", len(users))
		return userRepo, nil
	}

	if users == nil {
		if cfg.Env == "prod" {
			return nil, errors.New("USERS_FILE is required in prod with the memory user store")
		}
		var err error
		users, err = auth.DevUsers()
		if err != nil {
			return nil, err
		}
		slog.Warn("using development users; set USERS_FILE to configure accounts")
	}
	slog.Info("user directory", "store", config.UserStoreMemory, "users", len(users))
	return auth.NewMemoryDirectory(users), nil
}

// newLogger builds the default logger. format is "text" or "json"; level is debug, info, warn or error.
func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
