// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// BackfillParams selects which originals a backfill scan covers.
type BackfillParams struct {
	// Kinds restricts the scan to these entity kinds; empty scans all.
	Kinds []string
	// Since bounds the scan to entities published on or after the date.
	Since sql.NullTime
}

// Backfill scans published originals and emits one OLD job per missing
// (original, language) pair. A pair that already has a job of any type
// or status is skipped, so repeated scans never duplicate backlog
// entries. Returns the number of jobs created.
func (p *Pipeline) Backfill(ctx context.Context, arg BackfillParams) (int, error) {
	originals, err := p.queries.ListPublishedOriginals(ctx, store.ListPublishedOriginalsParams{
		Kinds: arg.Kinds,
		Since: arg.Since,
	})
	if err != nil {
		return 0, err
	}

	languages, err := p.registry.MirrorLanguages(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, original := range originals {
		for _, lang := range languages {
			_, err := p.queries.GetTranslationPointer(ctx, original.ID, lang.Prefix)
			if err == nil {
				continue // already translated
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return created, err
			}

			exists, err := p.queries.HasJobForPair(ctx, original.ID, lang.Prefix)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}

			if _, err := p.createJob(ctx, original.ID, lang.Prefix, model.JobTypeOld, nil); err != nil {
				return created, err
			}
			created++
		}
	}

	p.logger.Info("backfill scan finished",
		"originals", len(originals), "jobs_created", created)
	_ = p.events.LogBackfillEvent(ctx, model.EventLevelInfo, "Backfill scan finished", map[string]any{
		"originals":    len(originals),
		"jobs_created": created,
	})
	return created, nil
}
