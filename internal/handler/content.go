// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-mirror/internal/fieldtree"
	"github.com/olegiv/ocms-mirror/internal/langmap"
	"github.com/olegiv/ocms-mirror/internal/listing"
	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/resolver"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// ContentHandler serves content in the language resolved for the
// request: originals on unprefixed routes, mirrors on language-prefixed
// ones.
type ContentHandler struct {
	queries    *store.Queries
	langmap    *langmap.Map
	listing    *listing.Filter
	translator *fieldtree.Translator
	logger     *slog.Logger
}

// NewContentHandler creates a new content handler.
func NewContentHandler(q *store.Queries, m *langmap.Map, f *listing.Filter, t *fieldtree.Translator, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{queries: q, langmap: m, listing: f, translator: t, logger: logger}
}

func entityResponse(e model.Entity) map[string]any {
	resp := map[string]any{
		"id":      e.ID,
		"kind":    e.Kind,
		"title":   e.Title,
		"body":    e.Body,
		"excerpt": e.Excerpt,
		"status":  e.Status,
	}
	if e.Language.Valid {
		resp["language"] = e.Language.String
	}
	if e.OriginalID.Valid {
		resp["original_id"] = e.OriginalID.Int64
	}
	if e.PublishedAt.Valid {
		resp["published_at"] = e.PublishedAt.Time
	}
	return resp
}

// Get handles GET /content/{id} and GET /{lang}/content/{id}. The path
// ID always names the original; the active language picks the variant.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid entity ID")
		return
	}

	serveID := id
	if lang := resolver.GetLanguage(r); lang != nil {
		translatedID, ok, err := h.langmap.Resolve(r.Context(), id, lang.Prefix)
		if err != nil {
			h.logger.Error("failed to resolve translation", "id", id, "language", lang.Prefix, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to resolve translation")
			return
		}
		if ok {
			serveID = translatedID
		}
	}

	entity, err := h.queries.GetEntity(r.Context(), serveID)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "content not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load entity", "id", serveID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load content")
		return
	}
	if !entity.IsPublished() {
		writeJSONError(w, http.StatusNotFound, "content not found")
		return
	}

	// Advertise which mirror languages exist for this content.
	pointers, err := h.queries.ListTranslations(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list translations", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load content")
		return
	}
	available := make([]string, 0, len(pointers))
	for _, p := range pointers {
		available = append(available, p.Language)
	}
	sort.Strings(available)

	writeJSONSuccess(w, map[string]any{
		"entity":    entityResponse(entity),
		"languages": available,
	})
}

// List handles GET /content and GET /{lang}/content. On unprefixed
// routes only originals are returned; on language routes each original
// is replaced by its best visible variant.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var kinds []string
	if v := q.Get("kind"); v != "" {
		kinds = strings.Split(v, ",")
	}
	candidates, err := h.queries.ListPublishedOriginals(r.Context(), store.ListPublishedOriginalsParams{Kinds: kinds})
	if err != nil {
		h.logger.Error("failed to list originals", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list content")
		return
	}
	candidateIDs := make([]int64, 0, len(candidates))
	for _, e := range candidates {
		candidateIDs = append(candidateIDs, e.ID)
	}

	var excludeIDs []int64
	for _, raw := range strings.Split(q.Get("exclude"), ",") {
		if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			excludeIDs = append(excludeIDs, v)
		}
	}

	prefix := ""
	if lang := resolver.GetLanguage(r); lang != nil && !lang.IsDefault {
		prefix = lang.Prefix
	}

	ids, err := h.listing.FilterListing(r.Context(), candidateIDs, prefix, excludeIDs)
	if err != nil {
		h.logger.Error("failed to filter listing", "language", prefix, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list content")
		return
	}

	entities, err := h.queries.GetEntities(r.Context(), ids)
	if err != nil {
		h.logger.Error("failed to load entities", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list content")
		return
	}
	items := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if e, ok := entities[id]; ok {
			items = append(items, entityResponse(e))
		}
	}
	writeJSONSuccess(w, map[string]any{"entities": items, "total": len(items)})
}

// TranslateTree handles POST /api/translate-tree. It rewrites every
// entity reference in the posted field tree to its variant in the
// requested language.
func (h *ContentHandler) TranslateTree(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Language string          `json:"language"`
		Strict   bool            `json:"strict"`
		Tree     json.RawMessage `json:"tree"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Language == "" {
		writeJSONError(w, http.StatusBadRequest, "language is required")
		return
	}

	tree, err := fieldtree.FromJSON(payload.Tree)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	translated, err := h.translator.Translate(r.Context(), tree, payload.Language, payload.Strict)
	if err != nil {
		h.logger.Error("failed to translate field tree", "language", payload.Language, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to translate field tree")
		return
	}

	out, err := fieldtree.ToJSON(translated)
	if err != nil {
		h.logger.Error("failed to encode field tree", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to encode field tree")
		return
	}
	writeJSONSuccess(w, map[string]any{"tree": json.RawMessage(out)})
}
