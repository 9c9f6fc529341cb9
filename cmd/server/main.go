// Package main is the entry point for the Quantfolio portfolio study engine.
// The service downloads daily prices, estimates return and covariance
// statistics, runs constrained mean-variance optimizations and serves the
// results (including rendered charts) over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantfolio/internal/clients/yahoo"
	"quantfolio/internal/config"
	"quantfolio/internal/database"
	"quantfolio/internal/modules/charts"
	"quantfolio/internal/modules/optimization"
	"quantfolio/internal/modules/study"
	"quantfolio/internal/modules/universe"
	"quantfolio/internal/scheduler"
	"quantfolio/internal/server"
	"quantfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Quantfolio")

	// Price history and symbol cache database
	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Data layer
	yahooClient := yahoo.NewClient(log, time.Duration(cfg.HTTPTimeoutSecs)*time.Second)
	historyDB := universe.NewHistoryDB(db.Conn(), log)
	resolver := universe.NewSymbolResolver(db.Conn(), yahooClient, log)
	priceService := universe.NewPriceService(historyDB, yahooClient, log)

	// Study pipeline
	snapshotStore, err := study.NewSnapshotStore(cfg.StudiesDir(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot store")
	}
	chartRenderer := charts.NewRenderer(log)
	optimizer := optimization.New(log)

	studyService := study.NewService(resolver, priceService, optimizer, chartRenderer, snapshotStore, log)
	studyService.SetDefaultRiskFreeRate(cfg.RiskFreeRate)
	studyHandler := study.NewHandler(studyService, snapshotStore, log)
	universeHandler := universe.NewHandler(historyDB, priceService, log)

	// Nightly price refresh
	sched := scheduler.New(log)
	refreshJob := scheduler.NewPriceRefreshJob(historyDB, priceService, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("Failed to register price refresh job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:             log,
		Config:          cfg,
		StudyHandler:    studyHandler,
		UniverseHandler: universeHandler,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
	})

	// Run the server in a goroutine so shutdown signals can be handled
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("Server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Goodbye")
}
