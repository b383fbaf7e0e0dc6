// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package registry manages the ordered list of configured mirror
// languages and the derivation of their URL segments.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/util"
)

// Mutation errors. Configuration errors are rejected synchronously at
// this boundary and never partially applied.
var (
	// ErrPrefixTaken means another language already uses the exact
	// prefix. Prefixes are opaque operator-chosen keys, so the check is
	// case-sensitive and unnormalized.
	ErrPrefixTaken = errors.New("language prefix already in use")

	// ErrPathCollision means the normalized URL segment collides with
	// another language's. Paths are user-facing, so visually ambiguous
	// near-duplicates are rejected by comparing normalized forms.
	ErrPathCollision = errors.New("language path collides with an existing language")

	// ErrEmptyPrefix means the prefix was blank after trimming.
	ErrEmptyPrefix = errors.New("language prefix must not be empty")
)

// Normalize folds a prefix or path into its canonical lookup form:
// ASCII letters and digits only, lowercased.
func Normalize(s string) string {
	return util.NormalizePrefix(s)
}

// URLSegment returns the user-facing URL token for a language: the
// configured path when set, otherwise the raw prefix with hyphens and
// slashes trimmed. The raw prefix keeps its case; it stays the storage
// key either way.
func URLSegment(l model.Language) string {
	if l.Path != "" {
		return l.Path
	}
	return util.TrimSegment(l.Prefix)
}

// Registry provides language lookup and mutation over the store.
type Registry struct {
	queries *store.Queries
}

// New creates a Registry.
func New(q *store.Queries) *Registry {
	return &Registry{queries: q}
}

// List returns all configured languages in registry order.
func (r *Registry) List(ctx context.Context) ([]model.Language, error) {
	return r.queries.ListLanguages(ctx)
}

// Get returns a language by ID.
func (r *Registry) Get(ctx context.Context, id int64) (model.Language, error) {
	return r.queries.GetLanguage(ctx, id)
}

// Default returns the default (original-content) language: the one
// flagged default, or the first registry entry when none is flagged.
// Returns false when no languages are configured.
func (r *Registry) Default(ctx context.Context) (model.Language, bool, error) {
	langs, err := r.queries.ListLanguages(ctx)
	if err != nil {
		return model.Language{}, false, err
	}
	if len(langs) == 0 {
		return model.Language{}, false, nil
	}
	for _, l := range langs {
		if l.IsDefault {
			return l, true, nil
		}
	}
	return langs[0], true, nil
}

// MirrorLanguages returns the configured languages content is mirrored
// into, i.e. every non-default language.
func (r *Registry) MirrorLanguages(ctx context.Context) ([]model.Language, error) {
	langs, err := r.queries.ListLanguages(ctx)
	if err != nil {
		return nil, err
	}
	def, ok, err := r.Default(ctx)
	if err != nil {
		return nil, err
	}

	mirrors := make([]model.Language, 0, len(langs))
	for _, l := range langs {
		if ok && l.ID == def.ID {
			continue
		}
		mirrors = append(mirrors, l)
	}
	return mirrors, nil
}

// ResolveByURLSegment finds the language whose URL segment matches the
// given token, trying an exact match first and a normalized match
// second. Returns nil when no language matches.
func (r *Registry) ResolveByURLSegment(ctx context.Context, segment string) (*model.Language, error) {
	langs, err := r.queries.ListLanguages(ctx)
	if err != nil {
		return nil, err
	}

	for i := range langs {
		if URLSegment(langs[i]) == segment {
			return &langs[i], nil
		}
	}
	normalized := Normalize(segment)
	for i := range langs {
		if Normalize(URLSegment(langs[i])) == normalized {
			return &langs[i], nil
		}
	}
	return nil, nil
}

// ResolveByPrefix finds the language with the exact prefix.
// Returns nil when no language matches.
func (r *Registry) ResolveByPrefix(ctx context.Context, prefix string) (*model.Language, error) {
	lang, err := r.queries.GetLanguageByPrefix(ctx, prefix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lang, nil
}

// AddParams holds values for Add.
type AddParams struct {
	Prefix      string
	Path        string
	Name        string
	Description string
	IsDefault   bool
	Position    int
}

// Add creates a language after validating prefix and path collisions.
func (r *Registry) Add(ctx context.Context, arg AddParams) (model.Language, error) {
	if arg.Prefix == "" {
		return model.Language{}, ErrEmptyPrefix
	}

	langs, err := r.queries.ListLanguages(ctx)
	if err != nil {
		return model.Language{}, err
	}
	candidate := model.Language{Prefix: arg.Prefix, Path: arg.Path}
	if err := checkCollisions(candidate, langs, 0); err != nil {
		return model.Language{}, err
	}

	now := time.Now()
	return r.queries.CreateLanguage(ctx, store.CreateLanguageParams{
		Prefix:      arg.Prefix,
		Path:        arg.Path,
		Name:        arg.Name,
		Description: arg.Description,
		IsDefault:   arg.IsDefault,
		Position:    arg.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// UpdateParams holds values for Update.
type UpdateParams struct {
	ID          int64
	Prefix      string
	Path        string
	Name        string
	Description string
	IsDefault   bool
	Position    int
}

// Update edits a language after validating collisions against every
// other registry entry.
func (r *Registry) Update(ctx context.Context, arg UpdateParams) (model.Language, error) {
	if arg.Prefix == "" {
		return model.Language{}, ErrEmptyPrefix
	}

	langs, err := r.queries.ListLanguages(ctx)
	if err != nil {
		return model.Language{}, err
	}
	candidate := model.Language{Prefix: arg.Prefix, Path: arg.Path}
	if err := checkCollisions(candidate, langs, arg.ID); err != nil {
		return model.Language{}, err
	}

	return r.queries.UpdateLanguage(ctx, store.UpdateLanguageParams{
		ID:          arg.ID,
		Prefix:      arg.Prefix,
		Path:        arg.Path,
		Name:        arg.Name,
		Description: arg.Description,
		IsDefault:   arg.IsDefault,
		Position:    arg.Position,
		UpdatedAt:   time.Now(),
	})
}

// Remove deletes a language from the registry.
func (r *Registry) Remove(ctx context.Context, id int64) error {
	return r.queries.DeleteLanguage(ctx, id)
}

// checkCollisions rejects a candidate whose prefix exactly matches, or
// whose normalized URL segment matches, any registry entry other than
// selfID. Prefixes use exact comparison to preserve operator intent;
// paths use normalized comparison to avoid visually ambiguous tokens.
func checkCollisions(candidate model.Language, langs []model.Language, selfID int64) error {
	segment := Normalize(URLSegment(candidate))
	for _, l := range langs {
		if l.ID == selfID {
			continue
		}
		if l.Prefix == candidate.Prefix {
			return fmt.Errorf("%w: %q", ErrPrefixTaken, candidate.Prefix)
		}
		if segment != "" && Normalize(URLSegment(l)) == segment {
			return fmt.Errorf("%w: %q", ErrPathCollision, URLSegment(candidate))
		}
	}
	return nil
}
