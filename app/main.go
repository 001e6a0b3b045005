package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-sync/app/api"
	"github.com/lysyi3m/rss-sync/app/cfg"
	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/delta"
	"github.com/lysyi3m/rss-sync/app/feed"
	"github.com/lysyi3m/rss-sync/app/lease"
	"github.com/lysyi3m/rss-sync/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if appCfg.IssueToken != "" {
		token, err := api.GenerateToken([]byte(appCfg.JWTSecret), appCfg.IssueToken, 0)
		if err != nil {
			fatal("Failed to issue token", err)
		}
		fmt.Println(token)
		return
	}

	slog.Info("Starting RSS Sync server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		fatal("Failed to run migrations", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	syncStateRepo := database.NewSyncStateRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	contentRepo := database.NewContentRepository(db)
	readRepo := database.NewReadRepository(db)

	systemClock := clock.System{}
	stamper := clock.NewStamper(systemClock)

	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), appCfg.UserAgent, appCfg.FetchTimeout)
	executor := tasks.NewExecutor(syncStateRepo, contentRepo, fetcher, stamper, appCfg.MaxUpsertAge)

	var locker lease.Locker = lease.NewLocal(systemClock)
	if appCfg.RedisAddr != "" {
		redisLocker, err := lease.NewRedis(appCfg.RedisAddr)
		if err != nil {
			fatal("Failed to connect to Redis", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	scheduler := tasks.NewScheduler(executor, syncStateRepo, subscriptionRepo, locker, systemClock, tasks.Options{
		Interval:             appCfg.SchedulerInterval,
		WorkerCount:          appCfg.WorkerCount,
		BatchSize:            appCfg.BatchSize,
		MinFeedAge:           appCfg.MinFeedAge,
		MinSyncAgeFailedFeed: appCfg.MinSyncAgeFailedFeed,
	})
	scheduler.Start()
	defer scheduler.Stop()

	puller := delta.NewPuller(subscriptionRepo, contentRepo, readRepo, stamper)
	pusher := delta.NewPusher(syncStateRepo, subscriptionRepo, readRepo, scheduler, stamper)

	gin.SetMode(gin.ReleaseMode)
	if appCfg.Debug {
		gin.SetMode(gin.DebugMode)
	}
	handler := api.NewHandler(puller, pusher, scheduler, syncStateRepo, contentRepo)
	server := api.NewServer(handler, []byte(appCfg.JWTSecret), appCfg.CORSOrigins)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler, lease and database are closed via defer
	slog.Info("RSS Sync server shutdown complete")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
