// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/middleware"
)

// NewRouter wires the HTTP routes.
//
// Health and metrics sit outside the rate-limited group so monitoring
// never competes with API consumers for the request budget.
func NewRouter(handler *Handler, cfg *config.APIConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/sources", handler.Sources)
		r.Route("/"+SourceName, func(r chi.Router) {
			r.Get("/current", handler.Current)
			r.Get("/alltime", handler.AllTime)
			r.Get("/daily", handler.Daily)
			r.Post("/snapshot", handler.Snapshot)
		})
	})

	return r
}
