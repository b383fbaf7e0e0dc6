// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package listing rewrites homogeneous listing queries (archives, home
// feeds) to the active language's translated entities.
package listing

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/olegiv/ocms-mirror/internal/langmap"
	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// Filter rewrites listing candidate sets for a language.
type Filter struct {
	queries *store.Queries
	langmap *langmap.Map
}

// New creates a Filter.
func New(q *store.Queries, m *langmap.Map) *Filter {
	return &Filter{queries: q, langmap: m}
}

// FilterListing rewrites a candidate set for the given language prefix
// (empty = default language) and subtracts excludeIDs.
//
// Default listings only ever show originals: every entity carrying an
// original pointer is removed, whatever language it mirrors. For a
// non-default language each candidate is normalized to its translated
// representative in that language; candidates without one are dropped,
// never replaced by the original — an empty result stays empty rather
// than leaking the wrong language. Results keep recency order, newest
// first.
func (f *Filter) FilterListing(ctx context.Context, candidateIDs []int64, languagePrefix string, excludeIDs []int64) ([]int64, error) {
	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	if languagePrefix == "" {
		return f.filterDefault(ctx, candidateIDs, excluded)
	}
	return f.filterTranslated(ctx, candidateIDs, languagePrefix, excluded)
}

// filterDefault keeps only original entities, preserving candidate order.
func (f *Filter) filterDefault(ctx context.Context, candidateIDs []int64, excluded map[int64]struct{}) ([]int64, error) {
	entities, err := f.queries.GetEntities(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	result := make([]int64, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		entity, ok := entities[id]
		if !ok || entity.IsTranslation() {
			continue
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		result = append(result, id)
	}
	return result, nil
}

// filterTranslated normalizes every candidate — original or already a
// translation — to its representative in the target language, drops the
// ones without a representative, deduplicates, and orders by recency.
func (f *Filter) filterTranslated(ctx context.Context, candidateIDs []int64, languagePrefix string, excluded map[int64]struct{}) ([]int64, error) {
	entities, err := f.queries.GetEntities(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(candidateIDs))
	var representatives []model.Entity
	for _, id := range candidateIDs {
		entity, ok := entities[id]
		if !ok {
			continue
		}

		rep, ok, err := f.representative(ctx, entity, languagePrefix)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, dup := seen[rep.ID]; dup {
			continue
		}
		if _, skip := excluded[rep.ID]; skip {
			continue
		}
		seen[rep.ID] = struct{}{}
		representatives = append(representatives, rep)
	}

	sort.SliceStable(representatives, func(i, j int) bool {
		return representatives[i].Timestamp().After(representatives[j].Timestamp())
	})

	result := make([]int64, len(representatives))
	for i, rep := range representatives {
		result[i] = rep.ID
	}
	return result, nil
}

// representative maps a candidate to its published translation in the
// target language, requiring a published original behind it.
func (f *Filter) representative(ctx context.Context, entity model.Entity, languagePrefix string) (model.Entity, bool, error) {
	originalID := entity.ID
	if entity.IsTranslation() {
		if !entity.OriginalID.Valid {
			return model.Entity{}, false, nil
		}
		originalID = entity.OriginalID.Int64
	}

	original, err := f.queries.GetEntity(ctx, originalID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, false, nil
	}
	if err != nil {
		return model.Entity{}, false, err
	}
	if !original.IsPublished() {
		return model.Entity{}, false, nil
	}

	translatedID, ok, err := f.langmap.Resolve(ctx, originalID, languagePrefix)
	if err != nil || !ok {
		return model.Entity{}, false, err
	}

	translated, err := f.queries.GetEntity(ctx, translatedID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, false, nil
	}
	if err != nil {
		return model.Entity{}, false, err
	}
	return translated, true, nil
}
