package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cleanyhq/cleany/assets"
	"github.com/cleanyhq/cleany/internal"
	"github.com/cleanyhq/cleany/internal/account"
	accountdb "github.com/cleanyhq/cleany/internal/account/db"
	"github.com/cleanyhq/cleany/internal/db"
	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/email/postmark"
	"github.com/cleanyhq/cleany/internal/email/view"
	"github.com/cleanyhq/cleany/internal/krypto"
	"github.com/cleanyhq/cleany/internal/web"
	"github.com/cleanyhq/cleany/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	hashParams, err := cfg.hashParams()
	if err != nil {
		logger.Error("failed to resolve hash profile", "error", err)
		return 1
	}

	writeDB, err := db.OpenSQLite(cfg.DBFile, true)
	if err != nil {
		logger.Error("failed to open write database", "error", err)
		return 1
	}
	defer writeDB.Close()

	readDB, err := db.OpenSQLite(cfg.DBFile, false)
	if err != nil {
		logger.Error("failed to open read database", "error", err)
		return 1
	}
	defer readDB.Close()

	if err := migrations.Run(ctx, writeDB); err != nil {
		logger.Error("failed to run migrations", "error", err)
		return 1
	}

	encryptor, err := krypto.NewEncryptor(cfg.EncryptionKeys)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		return 1
	}

	store := accountdb.New(writeDB, readDB, encryptor, cfg.BlindIndexKey, hashParams)

	var sender email.Sender = email.NewLogSender(logger)
	if cfg.EmailDriver == "postmark" {
		sender = postmark.NewSender(http.DefaultClient, postmark.Settings{
			APIURL:        &cfg.PostmarkAPIURL,
			ServerToken:   cfg.PostmarkServerToken,
			MessageStream: cfg.PostmarkMessageStream,
		})
	}

	emailSvc := email.NewService(view.NewFSRenderer(assets.EmailFS), sender, cfg.EmailFrom)

	errHandler := func(err error) {
		logger.Error("background worker failed", "error", err)
	}

	svc, err := account.NewService(store, emailSvc, errHandler, account.ServiceConfig{
		WorkerTimeout:    cfg.WorkerTimeout,
		ResetTokenExpiry: cfg.ResetTokenExpiry,
		HashParams:       hashParams,
		BaseURL:          &cfg.BaseURL,
	})
	if err != nil {
		logger.Error("failed to create account service", "error", err)
		return 1
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:  logger,
			Service: svc,
		}),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.HTTPAddr,
			"buildRevision", internal.Build.Revision,
			"buildRevisionTime", internal.Build.RevisionTime,
			"buildLocalModified", internal.Build.Modified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutCtx)

		// Let in-flight activation and reset workers finish before
		// reporting the server as stopped.
		svc.Wait()

		return err
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}
