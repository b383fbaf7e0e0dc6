// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
)

const entityColumns = `id, kind, title, body, excerpt, status, language, original_id, created_at, updated_at, published_at`

func scanEntity(row interface{ Scan(...any) error }) (model.Entity, error) {
	var e model.Entity
	err := row.Scan(&e.ID, &e.Kind, &e.Title, &e.Body, &e.Excerpt, &e.Status,
		&e.Language, &e.OriginalID, &e.CreatedAt, &e.UpdatedAt, &e.PublishedAt)
	return e, err
}

func (q *Queries) scanEntities(rows *sql.Rows) ([]model.Entity, error) {
	defer func() { _ = rows.Close() }()
	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// CreateEntityParams holds values for CreateEntity.
type CreateEntityParams struct {
	Kind        string
	Title       string
	Body        string
	Excerpt     string
	Status      string
	Language    sql.NullString
	OriginalID  sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt sql.NullTime
}

// CreateEntity inserts an entity and returns it with its ID.
func (q *Queries) CreateEntity(ctx context.Context, arg CreateEntityParams) (model.Entity, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO entities (kind, title, body, excerpt, status, language, original_id, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+entityColumns,
		arg.Kind, arg.Title, arg.Body, arg.Excerpt, arg.Status, arg.Language,
		arg.OriginalID, arg.CreatedAt, arg.UpdatedAt, arg.PublishedAt)
	return scanEntity(row)
}

// GetEntity returns an entity by ID.
func (q *Queries) GetEntity(ctx context.Context, id int64) (model.Entity, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	return scanEntity(row)
}

// UpdateEntityFieldsParams holds values for UpdateEntityFields.
type UpdateEntityFieldsParams struct {
	ID        int64
	Title     string
	Body      string
	Excerpt   string
	UpdatedAt time.Time
}

// UpdateEntityFields overwrites the watched content fields of an entity.
func (q *Queries) UpdateEntityFields(ctx context.Context, arg UpdateEntityFieldsParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE entities SET title = ?, body = ?, excerpt = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Body, arg.Excerpt, arg.UpdatedAt, arg.ID)
	return err
}

// TagEntityLanguageParams holds values for TagEntityLanguage.
type TagEntityLanguageParams struct {
	ID         int64
	Language   string
	OriginalID int64
	UpdatedAt  time.Time
}

// TagEntityLanguage writes the language tag and the original pointer of a
// translated entity in a single statement. The two attributes are never
// written separately.
func (q *Queries) TagEntityLanguage(ctx context.Context, arg TagEntityLanguageParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE entities SET language = ?, original_id = ?, updated_at = ?
		WHERE id = ?`,
		arg.Language, arg.OriginalID, arg.UpdatedAt, arg.ID)
	return err
}

// GetTranslatedEntity looks up a published translation by its language
// tag and original pointer. This is the slow fallback path for entities
// created before pointers were cached.
func (q *Queries) GetTranslatedEntity(ctx context.Context, originalID int64, language string) (model.Entity, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE original_id = ? AND language = ?`,
		originalID, language)
	return scanEntity(row)
}

// ListTranslationsByLanguage returns all translated entities tagged with
// the given language, newest first.
func (q *Queries) ListTranslationsByLanguage(ctx context.Context, language string) ([]model.Entity, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE language = ?
		ORDER BY COALESCE(published_at, created_at) DESC`, language)
	if err != nil {
		return nil, err
	}
	return q.scanEntities(rows)
}

// ListPublishedOriginalsParams holds values for ListPublishedOriginals.
type ListPublishedOriginalsParams struct {
	Kinds []string
	Since sql.NullTime
}

// ListPublishedOriginals returns published original entities of the given
// kinds, optionally bounded to those published since a date, newest first.
func (q *Queries) ListPublishedOriginals(ctx context.Context, arg ListPublishedOriginalsParams) ([]model.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities
		WHERE status = 'published' AND language IS NULL`
	args := []any{}

	if len(arg.Kinds) > 0 {
		placeholders := strings.Repeat("?,", len(arg.Kinds))
		query += fmt.Sprintf(" AND kind IN (%s)", placeholders[:len(placeholders)-1])
		for _, k := range arg.Kinds {
			args = append(args, k)
		}
	}
	if arg.Since.Valid {
		query += " AND COALESCE(published_at, created_at) >= ?"
		args = append(args, arg.Since.Time)
	}
	query += " ORDER BY COALESCE(published_at, created_at) DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return q.scanEntities(rows)
}

// GetEntities returns entities for the given IDs. Missing IDs are
// silently absent from the result.
func (q *Queries) GetEntities(ctx context.Context, ids []int64) (map[int64]model.Entity, error) {
	result := make(map[int64]model.Entity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id IN (`+placeholders[:len(placeholders)-1]+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	entities, err := q.scanEntities(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		result[e.ID] = e
	}
	return result, nil
}
