// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package fieldtree

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/ocms-mirror/internal/langmap"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// MaxDepth bounds recursion into nested containers, preventing cycles
// in self-referential field values.
const MaxDepth = 10

// Translator rewrites entity references inside field value trees.
//
// One generic walk serves both policies: strict relational fields
// ("related items" widgets) that must never leak untranslated content,
// and lenient rich-content references where showing the original beats
// showing nothing.
type Translator struct {
	queries *store.Queries
	langmap *langmap.Map
}

// New creates a Translator.
func New(q *store.Queries, m *langmap.Map) *Translator {
	return &Translator{queries: q, langmap: m}
}

// Translate rewrites every entity reference in the value to its
// counterpart in the given language. With strict=true, references that
// have no translation are dropped from their container; with
// strict=false they keep pointing at the original. A strict top-level
// reference with no translation yields a nil Value.
func (t *Translator) Translate(ctx context.Context, v Value, languagePrefix string, strict bool) (Value, error) {
	out, _, err := t.walk(ctx, v, languagePrefix, 0, strict)
	return out, err
}

// walk returns the rewritten value and whether it should be dropped
// from its parent container.
func (t *Translator) walk(ctx context.Context, v Value, lang string, depth int, strict bool) (Value, bool, error) {
	if depth > MaxDepth {
		return v, false, nil
	}

	switch node := v.(type) {
	case List:
		// Child containers that come back empty keep their shape: a
		// repeated group must not collapse just because its leaf
		// contents vanished.
		out := make(List, 0, len(node))
		for _, child := range node {
			translated, drop, err := t.walk(ctx, child, lang, depth+1, strict)
			if err != nil {
				return nil, false, err
			}
			if drop {
				continue
			}
			out = append(out, translated)
		}
		return out, false, nil

	case Map:
		out := make(Map, len(node))
		for key, child := range node {
			translated, drop, err := t.walk(ctx, child, lang, depth+1, strict)
			if err != nil {
				return nil, false, err
			}
			if drop {
				continue
			}
			out[key] = translated
		}
		return out, false, nil

	case EntityRef:
		return t.walkRef(ctx, node, lang, depth, strict)

	default:
		// Scalars and unknown leaves pass through untouched.
		return v, false, nil
	}
}

// walkRef rewrites a single entity reference.
func (t *Translator) walkRef(ctx context.Context, ref EntityRef, lang string, depth int, strict bool) (Value, bool, error) {
	// Hydrated objects are demoted to bare IDs inside nested
	// containers so consumers see a uniform shape below the top level.
	hydrated := ref.Hydrated && depth == 0

	entity, err := t.queries.GetEntity(ctx, ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		if strict {
			return nil, true, nil
		}
		return EntityRef{ID: ref.ID, Hydrated: hydrated}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	// Already in the target language: keep, normalizing shape only.
	if entity.IsTranslation() && entity.Language.String == lang {
		return EntityRef{ID: ref.ID, Hydrated: hydrated}, false, nil
	}

	originalID := entity.ID
	if entity.IsTranslation() && entity.OriginalID.Valid {
		originalID = entity.OriginalID.Int64
	}

	translatedID, ok, err := t.langmap.Resolve(ctx, originalID, lang)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return EntityRef{ID: translatedID, Hydrated: hydrated}, false, nil
	}

	if strict {
		return nil, true, nil
	}
	return EntityRef{ID: ref.ID, Hydrated: hydrated}, false, nil
}
