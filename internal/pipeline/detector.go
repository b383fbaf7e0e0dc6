// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"time"

	"github.com/olegiv/ocms-mirror/internal/store"
)

// ObserveFields compares the current values of an entity's watched
// fields against their stored snapshots and queues EDIT jobs for any
// drift. Snapshots are overwritten whenever a diff is detected.
//
// A field seen for the first time is a baseline capture, not an edit:
// no job is emitted. An edit landing right after initial publish, before
// any snapshot exists, is therefore under-detected; the snapshot write
// is also not transactional with the content save it observes, so a
// rapid second edit can slip through. Both are accepted approximations.
func (p *Pipeline) ObserveFields(ctx context.Context, entityID int64, fields map[string]string) ([]string, error) {
	snapshots, err := p.queries.GetSnapshots(ctx, entityID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var changed []string
	for field, value := range fields {
		previous, seen := snapshots[field]
		if seen && previous == value {
			continue
		}

		if err := p.queries.UpsertSnapshot(ctx, store.UpsertSnapshotParams{
			EntityID:  entityID,
			Field:     field,
			Value:     value,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
		if seen {
			changed = append(changed, field)
		}
	}

	if len(changed) == 0 {
		return nil, nil
	}

	if _, err := p.EnqueueEdit(ctx, entityID, changed); err != nil {
		return changed, err
	}
	return changed, nil
}
