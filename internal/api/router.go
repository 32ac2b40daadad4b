// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/autobrr/keygate/internal/api/handlers"
	apimiddleware "github.com/autobrr/keygate/internal/api/middleware"
	"github.com/autobrr/keygate/internal/auth"
	"github.com/autobrr/keygate/internal/config"
	"github.com/autobrr/keygate/internal/metrics"
	"github.com/autobrr/keygate/internal/services"
)

// Dependencies holds all the dependencies needed for the API
type Dependencies struct {
	Config          *config.AppConfig
	AuthService     *auth.Service
	CustomerService *services.CustomerService
	LicenseService  *services.LicenseService
	MetricsManager  *metrics.Manager
}

// NewRouter creates and configures the main application router
func NewRouter(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))
	r.Use(apimiddleware.HTTPLogger)

	// Create handlers
	customersHandler := handlers.NewCustomersHandler(deps.CustomerService)
	licensesHandler := handlers.NewLicensesHandler(deps.LicenseService)
	metricsHandler := handlers.NewMetricsHandler(deps.MetricsManager)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Client routes (no auth, the license key is the credential)
		r.Route("/license", func(r chi.Router) {
			licensesHandler.RegisterRoutes(r)
		})

		// Admin routes (shared-secret header)
		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.RequireAdminSecret(deps.AuthService))

			r.Route("/customers", func(r chi.Router) {
				customersHandler.RegisterRoutes(r)
			})

			r.Get("/metrics", metricsHandler.ServeMetrics)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
