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
	"github.com/olegiv/ocms-mirror/internal/pipeline"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// NotifyHandler receives content-change notifications from the CMS and
// feeds them through the debouncer so rapid consecutive saves coalesce
// into one queue job per language.
type NotifyHandler struct {
	queries   *store.Queries
	debouncer *pipeline.Debouncer
	logger    *slog.Logger
}

// NewNotifyHandler creates a new notification handler.
func NewNotifyHandler(q *store.Queries, d *pipeline.Debouncer, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{queries: q, debouncer: d, logger: logger}
}

// Published handles POST /api/entities/{id}/published.
func (h *NotifyHandler) Published(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.loadEntity(w, r)
	if !ok {
		return
	}
	if !entity.IsPublished() {
		writeJSONError(w, http.StatusConflict, "entity is not published")
		return
	}

	h.debouncer.NotifyPublished(entity.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSONSuccess(w, map[string]any{"entity_id": entity.ID})
}

// Edited handles POST /api/entities/{id}/edited. The current field
// values are read from the store, so the notification body is empty.
func (h *NotifyHandler) Edited(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.loadEntity(w, r)
	if !ok {
		return
	}

	h.debouncer.NotifyEdited(entity.ID, map[string]string{
		"title":   entity.Title,
		"body":    entity.Body,
		"excerpt": entity.Excerpt,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSONSuccess(w, map[string]any{"entity_id": entity.ID})
}

func (h *NotifyHandler) loadEntity(w http.ResponseWriter, r *http.Request) (e model.Entity, ok bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid entity ID")
		return e, false
	}

	entity, err := h.queries.GetEntity(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "entity not found")
		return e, false
	}
	if err != nil {
		h.logger.Error("failed to load entity", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load entity")
		return e, false
	}
	return entity, true
}
