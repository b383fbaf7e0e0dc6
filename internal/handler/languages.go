// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/registry"
	"github.com/olegiv/ocms-mirror/internal/service"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// LanguageHandler handles the language registry API.
type LanguageHandler struct {
	registry *registry.Registry
	queries  *store.Queries
	events   *service.EventService
	logger   *slog.Logger
}

// NewLanguageHandler creates a new language handler.
func NewLanguageHandler(reg *registry.Registry, q *store.Queries, events *service.EventService, logger *slog.Logger) *LanguageHandler {
	return &LanguageHandler{registry: reg, queries: q, events: events, logger: logger}
}

type languagePayload struct {
	Prefix      string `json:"prefix"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
	Position    int    `json:"position"`
}

func languageResponse(l model.Language) map[string]any {
	return map[string]any{
		"id":          l.ID,
		"prefix":      l.Prefix,
		"path":        l.Path,
		"url_segment": registry.URLSegment(l),
		"name":        l.Name,
		"description": l.Description,
		"is_default":  l.IsDefault,
		"position":    l.Position,
		"created_at":  l.CreatedAt,
		"updated_at":  l.UpdatedAt,
	}
}

// List handles GET /api/languages.
func (h *LanguageHandler) List(w http.ResponseWriter, r *http.Request) {
	langs, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list languages", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list languages")
		return
	}

	items := make([]map[string]any, 0, len(langs))
	for _, l := range langs {
		items = append(items, languageResponse(l))
	}
	writeJSONSuccess(w, map[string]any{"languages": items})
}

// Common handles GET /api/languages/common. It lists the built-in
// language catalog for pickers, flagging entries already registered.
func (h *LanguageHandler) Common(w http.ResponseWriter, r *http.Request) {
	langs, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list languages", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list languages")
		return
	}
	registered := make(map[string]bool, len(langs))
	for _, l := range langs {
		registered[l.Prefix] = true
	}

	items := make([]map[string]any, 0, len(model.CommonLanguages))
	for _, cl := range model.CommonLanguages {
		items = append(items, map[string]any{
			"prefix":     cl.Prefix,
			"name":       cl.Name,
			"registered": registered[cl.Prefix],
		})
	}
	writeJSONSuccess(w, map[string]any{"languages": items})
}

// Get handles GET /api/languages/{id}.
func (h *LanguageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid language ID")
		return
	}

	lang, err := h.registry.Get(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "language not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get language", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to get language")
		return
	}
	writeJSONSuccess(w, map[string]any{"language": languageResponse(lang)})
}

// Create handles POST /api/languages.
func (h *LanguageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload languagePayload
	if err := decodeJSONBody(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lang, err := h.registry.Add(r.Context(), registry.AddParams{
		Prefix:      payload.Prefix,
		Path:        payload.Path,
		Name:        payload.Name,
		Description: payload.Description,
		IsDefault:   payload.IsDefault,
		Position:    payload.Position,
	})
	if err != nil {
		if isRegistryError(err) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to create language", "prefix", payload.Prefix, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create language")
		return
	}

	h.events.LogLanguageEvent(r.Context(), model.EventLevelInfo, "Language created: "+lang.Prefix, map[string]any{
		"language_id": lang.ID,
		"prefix":      lang.Prefix,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSONSuccess(w, map[string]any{"language": languageResponse(lang)})
}

// Update handles PUT /api/languages/{id}.
func (h *LanguageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid language ID")
		return
	}

	var payload languagePayload
	if err := decodeJSONBody(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lang, err := h.registry.Update(r.Context(), registry.UpdateParams{
		ID:          id,
		Prefix:      payload.Prefix,
		Path:        payload.Path,
		Name:        payload.Name,
		Description: payload.Description,
		IsDefault:   payload.IsDefault,
		Position:    payload.Position,
	})
	if err != nil {
		if isRegistryError(err) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "language not found")
			return
		}
		h.logger.Error("failed to update language", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to update language")
		return
	}

	h.events.LogLanguageEvent(r.Context(), model.EventLevelInfo, "Language updated: "+lang.Prefix, map[string]any{
		"language_id": lang.ID,
		"prefix":      lang.Prefix,
	})
	writeJSONSuccess(w, map[string]any{"language": languageResponse(lang)})
}

// Delete handles DELETE /api/languages/{id}. Mirror entities already
// produced in the language are kept; their count is reported so the
// operator knows what the removal orphans.
func (h *LanguageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid language ID")
		return
	}

	lang, err := h.registry.Get(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "language not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get language", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete language")
		return
	}

	mirrors, err := h.queries.ListTranslationsByLanguage(r.Context(), lang.Prefix)
	if err != nil {
		h.logger.Error("failed to count mirrors", "prefix", lang.Prefix, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete language")
		return
	}

	if err := h.registry.Remove(r.Context(), id); err != nil {
		h.logger.Error("failed to delete language", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete language")
		return
	}

	h.events.LogLanguageEvent(r.Context(), model.EventLevelWarning, "Language deleted: "+lang.Prefix, map[string]any{
		"language_id":      id,
		"prefix":           lang.Prefix,
		"orphaned_mirrors": len(mirrors),
	})
	writeJSONSuccess(w, map[string]any{"orphaned_mirrors": len(mirrors)})
}

func isRegistryError(err error) bool {
	return errors.Is(err, registry.ErrPrefixTaken) ||
		errors.Is(err, registry.ErrPathCollision) ||
		errors.Is(err, registry.ErrEmptyPrefix)
}
