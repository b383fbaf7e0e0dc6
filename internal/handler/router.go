// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP surface: the admin JSON API, the
// language-aware content routes and the health check.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/ocms-mirror/internal/resolver"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Resolver  *resolver.Resolver
	Health    *HealthHandler
	Languages *LanguageHandler
	Jobs      *JobHandler
	Notify    *NotifyHandler
	Content   *ContentHandler
}

// NewRouter assembles the HTTP router.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))

	// Language detection runs before the trailing-slash redirect so
	// language-canonical URLs are never rewritten. API and system paths
	// are skipped inside the resolver itself.
	r.Use(deps.Resolver.Middleware())
	r.Use(resolver.StripTrailingSlash)

	r.Get("/healthz", deps.Health.Health)

	registerContentRoutes(r, deps.Content)

	// Language-prefixed routes, e.g. /fr/content/42.
	r.Route("/{lang:[a-zA-Z][a-zA-Z0-9-]*}", func(r chi.Router) {
		registerContentRoutes(r, deps.Content)
	})

	// Admin JSON API.
	r.Route("/api", func(r chi.Router) {
		r.Route("/languages", func(r chi.Router) {
			r.Get("/", deps.Languages.List)
			r.Post("/", deps.Languages.Create)
			r.Get("/common", deps.Languages.Common)
			r.Get("/{id}", deps.Languages.Get)
			r.Put("/{id}", deps.Languages.Update)
			r.Delete("/{id}", deps.Languages.Delete)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", deps.Jobs.List)
			r.Post("/reset-failed", deps.Jobs.ResetFailed)
			r.Post("/reset-stale", deps.Jobs.ResetStale)
			r.Get("/{id}", deps.Jobs.Get)
			r.Post("/{id}/retry", deps.Jobs.Retry)
		})
		r.Post("/backfill", deps.Jobs.Backfill)

		r.Post("/translate-tree", deps.Content.TranslateTree)

		r.Route("/entities/{id}", func(r chi.Router) {
			r.Post("/published", deps.Notify.Published)
			r.Post("/edited", deps.Notify.Edited)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})

	return r
}

func registerContentRoutes(r chi.Router, content *ContentHandler) {
	r.Get("/content", content.List)
	r.Get("/content/{id}", content.Get)
}
