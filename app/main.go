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

	"github.com/lysyi3m/news-digest/app/api"
	"github.com/lysyi3m/news-digest/app/cache"
	"github.com/lysyi3m/news-digest/app/cfg"
	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/objectstore"
	"github.com/lysyi3m/news-digest/app/refresh"
	"github.com/lysyi3m/news-digest/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	setupLogger(appConfig.Debug)

	slog.Info("Starting News Digest server", "version", appConfig.Version)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appConfig.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	newsRepo := database.NewNewsRepository(db)

	var watermarks database.WatermarkStore = database.NewWatermarkRepository(db)
	if appConfig.RedisURL != "" {
		redisWatermarks, err := cache.NewWatermarkCache(appConfig.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisWatermarks.Close()
		watermarks = redisWatermarks
	}

	var images database.ImageStore = database.NewImageRepository(db)
	if appConfig.S3Bucket != "" {
		bucket, err := objectstore.NewImageBucket(context.Background(), objectstore.Options{
			Bucket:    appConfig.S3Bucket,
			Endpoint:  appConfig.S3Endpoint,
			Region:    appConfig.S3Region,
			AccessKey: appConfig.S3AccessKey,
			SecretKey: appConfig.S3SecretKey,
		})
		if err != nil {
			slog.Error("Failed to configure image bucket", "bucket", appConfig.S3Bucket, "error", err)
			os.Exit(1)
		}
		images = bucket
		slog.Info("Storing images in object storage", "bucket", appConfig.S3Bucket)
	}

	configCache := feed.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appConfig.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := configCache.Watch(ctx); err != nil {
			slog.Warn("Source configuration watch stopped", "error", err)
		}
	}()

	fetcher := feed.NewFetcher(appConfig.UserAgent)
	scraper := feed.NewScraper()
	filterer := feed.NewFilterer()
	extractor := feed.NewContentExtractor()

	updaters := make(map[string]refresh.Updater, len(feed.KnownSources))
	for _, name := range feed.KnownSources {
		source, err := feed.NewSource(name, configCache, fetcher, scraper, filterer, extractor, newsRepo, images)
		if err != nil {
			slog.Error("Failed to create source", "source", name, "error", err)
			os.Exit(1)
		}
		updaters[name] = source
	}

	if appConfig.UpdateKey == "" {
		slog.Warn("HN_UPDATE_KEY not set, POST /update is disabled")
	}
	orchestrator := refresh.NewOrchestrator(updaters, watermarks, appConfig.UpdateKey)

	if appConfig.SchedulerInterval > 0 {
		slog.Info("Starting background scheduler", "workers", appConfig.WorkerCount, "interval", appConfig.SchedulerInterval)
		scheduler := tasks.NewScheduler(orchestrator, orchestrator.Names(),
			time.Duration(appConfig.SchedulerInterval)*time.Second, appConfig.WorkerCount)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("Background scheduler disabled")
	}

	apiHandler := api.NewHandler(configCache, newsRepo, watermarks, images,
		feed.NewAssembler(configCache, newsRepo, appConfig.FeedAuthor),
		feed.NewGenerator(appConfig.Version),
		orchestrator, appConfig.BaseUrl, appConfig.Version)
	server := api.NewServer(apiHandler)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("News Digest server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
