// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// GetSnapshots returns the last-seen values of all watched fields for an
// entity as a field -> value map. An entity observed for the first time
// yields an empty map.
func (q *Queries) GetSnapshots(ctx context.Context, entityID int64) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT field, value FROM field_snapshots WHERE entity_id = ?`, entityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	snapshots := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		snapshots[field] = value
	}
	return snapshots, rows.Err()
}

// UpsertSnapshotParams holds values for UpsertSnapshot.
type UpsertSnapshotParams struct {
	EntityID  int64
	Field     string
	Value     string
	UpdatedAt time.Time
}

// UpsertSnapshot overwrites the stored snapshot of one watched field.
func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO field_snapshots (entity_id, field, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, field) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		arg.EntityID, arg.Field, arg.Value, arg.UpdatedAt)
	return err
}
