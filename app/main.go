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

	"github.com/trendsift/trendsift/app/api"
	"github.com/trendsift/trendsift/app/capture"
	"github.com/trendsift/trendsift/app/cfg"
	"github.com/trendsift/trendsift/app/database"
	"github.com/trendsift/trendsift/app/features"
	"github.com/trendsift/trendsift/app/pipeline"
	"github.com/trendsift/trendsift/app/sources"
	"github.com/trendsift/trendsift/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting TrendSift", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	sourceCache := sources.NewCache(appCfg.SourcesDir)
	if err := sourceCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", sourceCache.GetConfigCount())

	taxonomy, err := sources.LoadTaxonomy(appCfg.TaxonomyFile)
	if err != nil {
		slog.Error("Failed to load taxonomy", "file", appCfg.TaxonomyFile, "error", err)
		os.Exit(1)
	}

	rawRepo := database.NewRawRepository(db)
	featureRepo := database.NewFeatureRepository(db)
	runRepo := database.NewRunRepository(db)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	quota := capture.NewQuotaManager(appCfg.QuotaDailyCap)
	client := capture.NewClient(httpClient, quota, appCfg.YoutubeAPIKey, appCfg.UserAgent)
	feeds := capture.NewChannelFeedReader(httpClient, appCfg.UserAgent)
	captor := capture.NewCaptor(client, feeds, taxonomy)

	if appCfg.YoutubeAPIKey == "" {
		slog.Warn("YOUTUBE_API_KEY not set, capture tasks will fail until configured")
	}

	p := pipeline.NewPipeline(features.DefaultThresholds(), appCfg.WorkerCount)

	scheduler := tasks.NewScheduler(sourceCache, rawRepo, featureRepo, runRepo, captor, p)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	handler := api.NewHandler(sourceCache, rawRepo, featureRepo, runRepo, p, appCfg.BatchWindowDays, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
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

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
