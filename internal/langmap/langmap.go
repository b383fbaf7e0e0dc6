// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package langmap resolves original entities to their translated
// counterparts and back, with a cache-through pointer map and a live
// query fallback for entities created before pointers were cached.
package langmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/ocms-mirror/internal/cache"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/util"
)

// pointerTTL bounds how long a cached pointer map lives. Completion of a
// translation job invalidates the entry eagerly; the TTL is the backstop.
const pointerTTL = 30 * time.Minute

// Map provides translated-entity resolution over the store.
type Map struct {
	queries *store.Queries
	cache   cache.Cache
}

// New creates a Map backed by the given store and cache.
func New(q *store.Queries, c cache.Cache) *Map {
	return &Map{queries: q, cache: c}
}

// Resolve returns the translated counterpart of an original entity in
// the given language. Candidate prefixes are tried in order — exact,
// normalized, base locale ("fr-CA" falls back to "fr") — first against
// stored pointers, then as a live lookup by language tag. A candidate
// only counts as a hit when the entity exists and is published.
//
// A miss is not an error: callers receive (0, false, nil) and decide
// their own fallback policy.
func (m *Map) Resolve(ctx context.Context, originalID int64, prefix string) (int64, bool, error) {
	candidates := candidatePrefixes(prefix)

	pointers, err := m.pointers(ctx, originalID)
	if err != nil {
		return 0, false, err
	}
	for _, candidate := range candidates {
		id, ok := pointers[candidate]
		if !ok {
			continue
		}
		hit, err := m.isVisible(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if hit {
			return id, true, nil
		}
	}

	// Slow path: entities translated before pointer caching existed.
	for _, candidate := range candidates {
		entity, err := m.queries.GetTranslatedEntity(ctx, originalID, candidate)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		if entity.IsPublished() {
			return entity.ID, true, nil
		}
	}

	return 0, false, nil
}

// ResolveOriginal returns the original behind an entity: the entity
// itself when untagged, its original pointer when it is a translation.
func (m *Map) ResolveOriginal(ctx context.Context, entityID int64) (int64, error) {
	entity, err := m.queries.GetEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	if entity.IsTranslation() && entity.OriginalID.Valid {
		return entity.OriginalID.Int64, nil
	}
	return entityID, nil
}

// Invalidate drops the cached pointer map for an original entity.
// Called when a translation job completes.
func (m *Map) Invalidate(ctx context.Context, originalID int64) {
	_ = m.cache.Delete(ctx, pointerKey(originalID))
}

// pointers loads the language -> translated ID map for an original,
// cache first.
func (m *Map) pointers(ctx context.Context, originalID int64) (map[string]int64, error) {
	key := pointerKey(originalID)

	if raw, err := m.cache.Get(ctx, key); err == nil {
		var pointers map[string]int64
		if err := json.Unmarshal(raw, &pointers); err == nil {
			return pointers, nil
		}
		// Corrupt entry, fall through to reload.
	}

	pointers, err := m.queries.GetTranslationPointers(ctx, originalID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(pointers); err == nil {
		_ = m.cache.Set(ctx, key, raw, pointerTTL)
	}
	return pointers, nil
}

// isVisible reports whether an entity exists and is published.
func (m *Map) isVisible(ctx context.Context, id int64) (bool, error) {
	entity, err := m.queries.GetEntity(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entity.IsPublished(), nil
}

// candidatePrefixes builds the ordered, deduplicated fallback chain for
// a language prefix.
func candidatePrefixes(prefix string) []string {
	candidates := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, c := range []string{prefix, util.NormalizePrefix(prefix), util.BasePrefix(prefix)} {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}
	return candidates
}

func pointerKey(originalID int64) string {
	return fmt.Sprintf("langmap:pointers:%d", originalID)
}
