// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up the HTTP routes and middleware chain for the
// MarketHub category service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"markethub/internal/handlers"
	"markethub/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(categories *handlers.Categories) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Actor)

	// Health check.
	r.Get("/health", healthHandler)

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", categories.Tree)
		r.Post("/", categories.Create)
		r.Post("/reorder", categories.Reorder)
		r.Post("/import", categories.Import)
		r.Get("/export", categories.Export)
		r.Get("/audit", categories.AuditLog)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", categories.Get)
			r.Put("/", categories.Update)
			r.Delete("/", categories.Delete)
			r.Post("/restore", categories.Restore)
			r.Post("/reassign", categories.Reassign)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
