// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, startTime: time.Now()}
}

// Health handles GET /healthz requests.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	err := h.db.Ping()
	latency := time.Since(start)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "healthy",
		"db_latency": latency.String(),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
	})
}
