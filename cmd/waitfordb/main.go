package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"accounts-api/internal/config"
	"accounts-api/internal/database"
	"accounts-api/internal/logging"
)

// waitfordb blocks until the configured Postgres database accepts
// connections, then exits 0. Container entrypoints run it before
// migrations and the API server so neither races the database startup.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg := config.LoadDatabase()

	// Command-line tool, so log text for humans regardless of environment
	logger := logging.NewLogger(true)

	// sql.Open does not dial; the waiter's ping probe does
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probe := database.PingProbe(db, database.DefaultProbeTimeout)
	waiter := database.NewWaiter(probe, logger)

	return waiter.Wait(ctx)
}
