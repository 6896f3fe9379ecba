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

	"icalagenda/app/api"
	"icalagenda/app/cfg"
	"icalagenda/app/database"
	"icalagenda/app/ical"
	"icalagenda/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting iCal Agenda server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	// Load calendar configurations
	configCache := ical.NewConfigCache(appCfg.CalendarsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load calendar configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Calendar configurations loaded", "count", configCache.GetConfigCount())

	// Register calendars in the database so stored validators survive restarts
	feedRepo := database.NewFeedRepository(db)
	for name, config := range configCache.GetConfigs() {
		if err := feedRepo.UpsertFeed(name, config.URL); err != nil {
			slog.Warn("Failed to register calendar", "calendar", name, "error", err)
			continue
		}
		slog.Debug("Registered calendar", "calendar", name, "url", config.URL)
	}

	// Start the poll scheduler
	scheduler := tasks.NewScheduler(configCache, feedRepo, nil)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Poll scheduler started", "interval_minutes", appCfg.PollInterval)

	// Log coalesced change notifications; API consumers poll /events
	refreshCh := scheduler.Subscribe()
	go func() {
		for range refreshCh {
			slog.Info("Calendar content changed")
		}
	}()

	// HTTP server
	handler := api.NewHandler(configCache, feedRepo, scheduler)
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

	// Scheduler is stopped via defer; an in-progress cycle finishes first
	slog.Info("Shutdown complete")
}
