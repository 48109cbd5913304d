package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-reader/app/api"
	"github.com/lysyi3m/rss-reader/app/cfg"
	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/ingest"
	"github.com/lysyi3m/rss-reader/app/progress"
	"github.com/lysyi3m/rss-reader/app/registry"
	"github.com/lysyi3m/rss-reader/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		return
	}

	setupLogger(config.Debug)

	if err := run(config); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(config *cfg.Cfg) error {
	slog.Info("Starting RSS Reader", "version", config.Version)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("Database connected", "path", config.DBPath)

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)

	fetcher := feed.NewFetcher(config.UserAgent, config.FetchTimeout, feed.NewHostRateLimiter(config.HostInterval))
	extractor := feed.NewContentExtractor(fetcher)
	ingestor := ingest.New(articleRepo, extractor, config.ExtractWorkers)
	reporter := progress.NewReporter()

	scheduler := tasks.NewScheduler(config.WorkerCount, config.TaskTimeout)
	reg := registry.New(feedRepo, articleRepo, fetcher, feed.NewParser(), extractor, ingestor, reporter,
		registry.WithScheduler(scheduler))

	scheduler.Start()
	slog.Info("Task scheduler started", "workers", config.WorkerCount)

	// Cancelled on shutdown so open event streams and in-flight syncs end
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	handler := api.NewHandler(reg, reporter, config.Version)
	httpServer := &http.Server{
		Addr:        ":" + config.Port,
		Handler:     api.NewServer(handler, config.APIAccessKey),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: /api/events streams stay open
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErr:
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cancelRequests()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	scheduler.Stop()
	slog.Info("Shutdown complete")

	return runErr
}
