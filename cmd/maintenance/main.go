// Package main runs periodic database maintenance: expired sessions are
// deleted so the sessions table does not grow without bound. Intended to be
// invoked from cron or a scheduled container.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dttools/internal/config"
	"dttools/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	sessions := db.NewSessionRepository(pool)
	deleted, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}

	logger.Info("maintenance complete", "expired_sessions_deleted", deleted)
	return nil
}
