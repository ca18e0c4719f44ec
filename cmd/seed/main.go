// Package main seeds the subscription plan catalog. It inserts the default
// free, pro, team, and enterprise plans, skipping any plan name that already
// exists so admin edits are never overwritten. Safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dttools/internal/billing"
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	plans := db.NewPlanRepository(pool)
	inserted, err := plans.SeedDefaults(ctx, billing.DefaultPlans(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seeding plans: %w", err)
	}

	fmt.Printf("seeded %d plan(s)\n", inserted)
	return nil
}
