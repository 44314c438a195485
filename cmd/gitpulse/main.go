package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/gitpulse/internal/adapter/driving/http"
	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"github_base_url", cfg.GitHubBaseURL,
		"github_rps", cfg.GitHubRPS,
		"page_size", cfg.PageSize,
		"commit_page_cap", cfg.CommitPageCap,
		"pr_page_cap", cfg.PRPageCap,
		"timezone", cfg.Location.String(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	repoStore := sqliteadapter.NewRepoRepo(db)
	commitStore := sqliteadapter.NewCommitRepo(db)
	prStore := sqliteadapter.NewPRRepo(db)
	jobStore := sqliteadapter.NewSyncJobRepo(db)

	// 6. GitHub clients are built per sync from the caller's token.
	clients, err := githubadapter.NewClientFactory(cfg.GitHubBaseURL, cfg.GitHubRPS)
	if err != nil {
		return err
	}

	// 7. Create workers and services.
	commitWorker := application.NewCommitWorker(commitStore, jobStore, cfg.PageSize, cfg.CommitPageCap, logger)
	prWorker := application.NewPRWorker(prStore, cfg.PageSize, cfg.PRPageCap, logger)
	syncSvc := application.NewSyncService(clients, repoStore, jobStore, commitWorker, prWorker, logger)
	analyticsSvc := application.NewAnalyticsService(repoStore, commitStore, prStore, cfg.Location)

	// 8. Create HTTP handler and apply middleware.
	apiHandler := httphandler.NewHandler(syncSvc, analyticsSvc, repoStore, logger)
	handler := httphandler.NewServeMux(apiHandler, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	slog.Info("gitpulse started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serverErr:
		slog.Error("http server error", "error", err)
		stop()
	}

	// 10. Graceful shutdown: stop accepting requests, then drain sync workers
	// so no ledger row is left running by the process exit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	drained := make(chan struct{})
	go func() {
		syncSvc.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		slog.Info("sync workers drained")
	case <-shutdownCtx.Done():
		slog.Warn("shutdown timeout reached with sync workers still running")
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger. format is "json" or "text"; level is
// one of debug, info, warn or error.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	setLogLevel(level, lvl)

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
