// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
)

const languageColumns = `id, prefix, path, name, description, is_default, position, created_at, updated_at`

func scanLanguage(row interface{ Scan(...any) error }) (model.Language, error) {
	var l model.Language
	err := row.Scan(&l.ID, &l.Prefix, &l.Path, &l.Name, &l.Description,
		&l.IsDefault, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// CreateLanguageParams holds values for CreateLanguage.
type CreateLanguageParams struct {
	Prefix      string
	Path        string
	Name        string
	Description string
	IsDefault   bool
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateLanguage inserts a language and returns it with its ID.
func (q *Queries) CreateLanguage(ctx context.Context, arg CreateLanguageParams) (model.Language, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO languages (prefix, path, name, description, is_default, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+languageColumns,
		arg.Prefix, arg.Path, arg.Name, arg.Description, arg.IsDefault,
		arg.Position, arg.CreatedAt, arg.UpdatedAt)
	return scanLanguage(row)
}

// UpdateLanguageParams holds values for UpdateLanguage.
type UpdateLanguageParams struct {
	ID          int64
	Prefix      string
	Path        string
	Name        string
	Description string
	IsDefault   bool
	Position    int
	UpdatedAt   time.Time
}

// UpdateLanguage updates a language row.
func (q *Queries) UpdateLanguage(ctx context.Context, arg UpdateLanguageParams) (model.Language, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE languages
		SET prefix = ?, path = ?, name = ?, description = ?, is_default = ?, position = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+languageColumns,
		arg.Prefix, arg.Path, arg.Name, arg.Description, arg.IsDefault,
		arg.Position, arg.UpdatedAt, arg.ID)
	return scanLanguage(row)
}

// DeleteLanguage removes a language row.
func (q *Queries) DeleteLanguage(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM languages WHERE id = ?`, id)
	return err
}

// GetLanguage returns a language by ID.
func (q *Queries) GetLanguage(ctx context.Context, id int64) (model.Language, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+languageColumns+` FROM languages WHERE id = ?`, id)
	return scanLanguage(row)
}

// GetLanguageByPrefix returns a language by its exact prefix.
func (q *Queries) GetLanguageByPrefix(ctx context.Context, prefix string) (model.Language, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+languageColumns+` FROM languages WHERE prefix = ?`, prefix)
	return scanLanguage(row)
}

// ListLanguages returns all languages ordered by position then prefix.
func (q *Queries) ListLanguages(ctx context.Context) ([]model.Language, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+languageColumns+` FROM languages ORDER BY position, prefix`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var langs []model.Language
	for rows.Next() {
		l, err := scanLanguage(rows)
		if err != nil {
			return nil, err
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

// CountLanguages returns the number of configured languages.
func (q *Queries) CountLanguages(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM languages`).Scan(&n)
	return n, err
}
