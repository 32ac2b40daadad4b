// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/api"
	"github.com/autobrr/keygate/internal/auth"
	"github.com/autobrr/keygate/internal/config"
	"github.com/autobrr/keygate/internal/database"
	"github.com/autobrr/keygate/internal/metrics"
	"github.com/autobrr/keygate/internal/services"
	"github.com/autobrr/keygate/internal/store"
)

type Application struct {
	version   string
	configDir string
	dataDir   string
	logPath   string
}

func NewApplication(version, configDir, dataDir, logPath string) *Application {
	return &Application{
		version:   version,
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
	}
}

func (app *Application) runServer() {
	log.Info().Str("version", app.version).Msg("Starting keygate")

	// Initialize configuration
	cfg, err := config.New(app.configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	// Flags override config file values
	if app.dataDir != "" {
		cfg.Config.DataDir = app.dataDir
	}
	if app.logPath != "" {
		cfg.Config.LogPath = app.logPath
	}

	cfg.ApplyLogConfig()

	// Initialize the persistence provider
	customerStore, cleanup, err := app.openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer cleanup()

	// Initialize services
	authService := auth.NewService(cfg.Config.AdminSecretHash)
	if !authService.Configured() {
		log.Warn().Msg("No admin secret configured - admin endpoints are disabled. Run 'keygate set-admin-secret'")
	}

	customerService := services.NewCustomerService(customerStore)

	licenseService, err := services.NewLicenseService(customerStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize license service")
	}

	metricsManager := metrics.NewManager(customerStore)

	// Initialize router
	router := api.NewRouter(&api.Dependencies{
		Config:          cfg,
		AuthService:     authService,
		CustomerService: customerService,
		LicenseService:  licenseService,
		MetricsManager:  metricsManager,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Config.Host, cfg.Config.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", srv.Addr).
			Str("storage", cfg.Config.StorageType).
			Msg("Starting HTTP server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStore builds the configured persistence backend. Both backends
// satisfy the same contract, so everything past this point is
// backend-agnostic.
func (app *Application) openStore(cfg *config.AppConfig) (store.Store, func(), error) {
	switch cfg.Config.StorageType {
	case config.StorageSQLite:
		db, err := database.New(cfg.GetDatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return store.NewCustomerStore(db.Conn(), nil), func() { db.Close() }, nil

	case config.StorageFile:
		fileStore, err := store.NewFileStore(cfg.GetDataFilePath(), nil)
		if err != nil {
			return nil, nil, err
		}
		return fileStore, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type: %s", cfg.Config.StorageType)
	}
}
