// Command dbmigrate runs the database migrations and exits. The server
// also migrates on startup, this command is for running migrations
// separately, for example in a deploy pipeline.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cleanyhq/cleany/internal/db"
	"github.com/cleanyhq/cleany/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dbFile := os.Getenv("DB_FILE")
	if dbFile == "" {
		dbFile = "cleany.db"
	}

	writeDB, err := db.OpenSQLite(dbFile, true)
	if err != nil {
		logger.Error("failed to open write database", "error", err)
		os.Exit(1)
	}
	defer writeDB.Close()

	if err := migrations.Run(ctx, writeDB); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	logger.Info("migrations ran successfully", "dbFile", dbFile)
}
