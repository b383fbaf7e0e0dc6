// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
)

// UpsertTranslationParams holds values for UpsertTranslation.
type UpsertTranslationParams struct {
	EntityID      int64
	Language      string
	TranslationID int64
	CreatedAt     time.Time
}

// UpsertTranslation writes a translation pointer, replacing any existing
// pointer for the same (entity, language) pair.
func (q *Queries) UpsertTranslation(ctx context.Context, arg UpsertTranslationParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO translations (entity_id, language, translation_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, language) DO UPDATE SET translation_id = excluded.translation_id`,
		arg.EntityID, arg.Language, arg.TranslationID, arg.CreatedAt)
	return err
}

// GetTranslationPointer returns the stored pointer for one (entity,
// language) pair, or sql.ErrNoRows when none exists.
func (q *Queries) GetTranslationPointer(ctx context.Context, entityID int64, language string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`SELECT translation_id FROM translations WHERE entity_id = ? AND language = ?`,
		entityID, language).Scan(&id)
	return id, err
}

// GetTranslationPointers returns all stored pointers for an entity as a
// language -> translated entity ID map.
func (q *Queries) GetTranslationPointers(ctx context.Context, entityID int64) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT language, translation_id FROM translations WHERE entity_id = ?`, entityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pointers := make(map[string]int64)
	for rows.Next() {
		var lang string
		var id int64
		if err := rows.Scan(&lang, &id); err != nil {
			return nil, err
		}
		pointers[lang] = id
	}
	return pointers, rows.Err()
}

// ListTranslations returns all pointer rows for an entity.
func (q *Queries) ListTranslations(ctx context.Context, entityID int64) ([]model.Translation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, entity_id, language, translation_id, created_at
		FROM translations WHERE entity_id = ?`, entityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var translations []model.Translation
	for rows.Next() {
		var t model.Translation
		if err := rows.Scan(&t.ID, &t.EntityID, &t.Language, &t.TranslationID, &t.CreatedAt); err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	return translations, rows.Err()
}
