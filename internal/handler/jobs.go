// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/pipeline"
	"github.com/olegiv/ocms-mirror/internal/store"
)

const defaultPageSize = 50

// JobHandler handles the translation queue API.
type JobHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(p *pipeline.Pipeline, logger *slog.Logger) *JobHandler {
	return &JobHandler{pipeline: p, logger: logger}
}

func jobResponse(j model.QueueJob) map[string]any {
	resp := map[string]any{
		"id":         j.ID,
		"parent_id":  j.ParentID,
		"language":   j.Language,
		"status":     j.Status,
		"type":       j.Type,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}
	if fields := j.EditedFieldList(); len(fields) > 0 {
		resp["edited_fields"] = fields
	}
	if j.TranslatedID.Valid {
		resp["translated_id"] = j.TranslatedID.Int64
	}
	if j.ErrorMessage.Valid {
		resp["error_message"] = j.ErrorMessage.String
	}
	if j.ClaimedAt.Valid {
		resp["claimed_at"] = j.ClaimedAt.Time
	}
	if j.IsStale(time.Now()) {
		resp["stale"] = true
	}
	return resp
}

// List handles GET /api/jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := int64(defaultPageSize)
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	page := int64(1)
	if v, err := strconv.ParseInt(q.Get("page"), 10, 64); err == nil && v > 0 {
		page = v
	}

	params := store.ListJobsParams{
		Status:   q.Get("status"),
		Type:     q.Get("type"),
		Language: q.Get("language"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	jobs, total, err := h.pipeline.List(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	items := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, jobResponse(j))
	}
	writeJSONSuccess(w, map[string]any{
		"jobs":  items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.pipeline.Queries().GetJob(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get job", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	writeJSONSuccess(w, map[string]any{"job": jobResponse(job)})
}

// Retry handles POST /api/jobs/{id}/retry. Only failed jobs can be
// retried.
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.pipeline.Retry(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotClaimed) {
			writeJSONError(w, http.StatusConflict, "job is not in failed state")
			return
		}
		h.logger.Error("failed to retry job", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to retry job")
		return
	}
	writeJSONSuccess(w, map[string]any{"job_id": id})
}

// ResetFailed handles POST /api/jobs/reset-failed.
func (h *JobHandler) ResetFailed(w http.ResponseWriter, r *http.Request) {
	count, err := h.pipeline.ResetAllFailed(r.Context())
	if err != nil {
		h.logger.Error("failed to reset failed jobs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to reset failed jobs")
		return
	}
	writeJSONSuccess(w, map[string]any{"reset": count})
}

// ResetStale handles POST /api/jobs/reset-stale.
func (h *JobHandler) ResetStale(w http.ResponseWriter, r *http.Request) {
	count, err := h.pipeline.ResetStale(r.Context())
	if err != nil {
		h.logger.Error("failed to reset stale jobs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to reset stale jobs")
		return
	}
	writeJSONSuccess(w, map[string]any{"reset": count})
}

// Backfill handles POST /api/backfill. Body is optional.
func (h *JobHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kinds []string `json:"kinds"`
		Since string   `json:"since"` // RFC 3339
	}
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &payload); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	params := pipeline.BackfillParams{Kinds: payload.Kinds}
	if payload.Since != "" {
		since, err := time.Parse(time.RFC3339, payload.Since)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		params.Since = sql.NullTime{Time: since, Valid: true}
	}

	created, err := h.pipeline.Backfill(r.Context(), params)
	if err != nil {
		h.logger.Error("backfill failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "backfill failed")
		return
	}
	writeJSONSuccess(w, map[string]any{"created": created})
}
