package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/critterhaus/burrow/internal/api"
	"github.com/critterhaus/burrow/internal/backup"
	"github.com/critterhaus/burrow/internal/config"
	"github.com/critterhaus/burrow/internal/connectivity"
	"github.com/critterhaus/burrow/internal/engine"
	"github.com/critterhaus/burrow/internal/remote"
	"github.com/critterhaus/burrow/internal/store"
	"github.com/critterhaus/burrow/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - offline-first sync agent for the Critterhaus client",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("configuration loaded", "level", cfg.Log.Level)

	// Initialization failure here is fatal: nothing works without the
	// local store.
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	remoteClient := remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.APIKey,
		time.Duration(cfg.Remote.Timeout))

	probe := connectivity.NewProbe(remoteClient.HealthURL(),
		time.Duration(cfg.Sync.ProbeInterval), time.Duration(cfg.Remote.Timeout))

	broadcaster := worker.NewBroadcaster(db, probe, cfg.Sync.MaxRetries)
	coordinator := worker.NewSyncCoordinator(db, remoteClient, probe, broadcaster,
		time.Duration(cfg.Sync.Interval), cfg.Sync.BatchSize, cfg.Sync.MaxRetries)

	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		return err
	}

	eng := engine.New(db, coordinator, broadcaster, uploader)

	apiHandler := api.NewHandler(eng, cfg.Server.APIKey, Version, cfg.Sync.RetentionDays)
	router := api.NewRouter(apiHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	startWorker(ctx, &wg, "connectivity-probe", probe.Run)
	startWorker(ctx, &wg, "sync-coordinator", coordinator.Run)

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is
		// called gracefully.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects
// context cancellation. Workers are tracked via WaitGroup for graceful
// shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
