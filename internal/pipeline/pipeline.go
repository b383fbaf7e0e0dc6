// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline implements the translation job queue: idempotent
// NEW/EDIT/OLD job creation, atomic claims, completion with pointer
// writes, and stuck-job recovery.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-mirror/internal/langmap"
	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/registry"
	"github.com/olegiv/ocms-mirror/internal/service"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// Pipeline coordinates queue-job creation and state transitions.
type Pipeline struct {
	db       *sql.DB
	queries  *store.Queries
	registry *registry.Registry
	langmap  *langmap.Map
	events   *service.EventService
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(db *sql.DB, reg *registry.Registry, m *langmap.Map, events *service.EventService, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		db:       db,
		queries:  store.New(db),
		registry: reg,
		langmap:  m,
		events:   events,
		logger:   logger,
	}
}

// Queries exposes the pipeline's store handle for collaborators that
// share its database.
func (p *Pipeline) Queries() *store.Queries {
	return p.queries
}

// EnqueueNew creates one NEW job per configured mirror language for an
// entity published for the first time. Idempotent: a pair that already
// has any job is skipped, so calling the trigger twice creates nothing
// extra.
func (p *Pipeline) EnqueueNew(ctx context.Context, parentID int64) (int, error) {
	parent, err := p.queries.GetEntity(ctx, parentID)
	if err != nil {
		return 0, fmt.Errorf("loading entity %d: %w", parentID, err)
	}
	if parent.IsTranslation() {
		// Translations are produced, never sources.
		return 0, nil
	}

	languages, err := p.registry.MirrorLanguages(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, lang := range languages {
		exists, err := p.queries.HasJobForPair(ctx, parentID, lang.Prefix)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if _, err := p.createJob(ctx, parentID, lang.Prefix, model.JobTypeNew, nil); err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		p.logger.Info("queued translation jobs for new entity",
			"entity_id", parentID, "jobs", created)
	}
	return created, nil
}

// EnqueueEdit creates one EDIT job per language that already has a
// completed translation of the parent. Languages still waiting on their
// first translation are skipped — there is nothing to edit yet — and a
// pending EDIT job for the pair absorbs further edits instead of
// stacking duplicates.
func (p *Pipeline) EnqueueEdit(ctx context.Context, parentID int64, changedFields []string) (int, error) {
	languages, err := p.registry.MirrorLanguages(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, lang := range languages {
		_, err := p.queries.GetTranslationPointer(ctx, parentID, lang.Prefix)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return created, err
		}

		pending, err := p.queries.HasPendingEditJob(ctx, parentID, lang.Prefix)
		if err != nil {
			return created, err
		}
		if pending {
			continue
		}

		if _, err := p.createJob(ctx, parentID, lang.Prefix, model.JobTypeEdit, changedFields); err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		p.logger.Info("queued edit-translation jobs",
			"entity_id", parentID, "jobs", created, "fields", changedFields)
	}
	return created, nil
}

// createJob inserts one pending job.
func (p *Pipeline) createJob(ctx context.Context, parentID int64, language, jobType string, changedFields []string) (model.QueueJob, error) {
	return p.queries.CreateJob(ctx, store.CreateJobParams{
		ID:           uuid.NewString(),
		ParentID:     parentID,
		Language:     language,
		Type:         jobType,
		EditedFields: model.EncodeEditedFields(changedFields),
		CreatedAt:    time.Now(),
	})
}

// Complete finishes a processing job: within one transaction the
// translation pointer is written, the produced entity is tagged with its
// language and original, and the job is marked completed. The pointer
// and the tag are never written partially.
func (p *Pipeline) Complete(ctx context.Context, job model.QueueJob, translatedID int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	qtx := p.queries.WithTx(tx)

	if err := qtx.UpsertTranslation(ctx, store.UpsertTranslationParams{
		EntityID:      job.ParentID,
		Language:      job.Language,
		TranslationID: translatedID,
		CreatedAt:     now,
	}); err != nil {
		return fmt.Errorf("writing translation pointer: %w", err)
	}

	if err := qtx.TagEntityLanguage(ctx, store.TagEntityLanguageParams{
		ID:         translatedID,
		Language:   job.Language,
		OriginalID: job.ParentID,
		UpdatedAt:  now,
	}); err != nil {
		return fmt.Errorf("tagging translated entity: %w", err)
	}

	if err := qtx.CompleteJob(ctx, store.CompleteJobParams{
		ID:           job.ID,
		TranslatedID: translatedID,
		UpdatedAt:    now,
	}); err != nil {
		return fmt.Errorf("completing job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing completion: %w", err)
	}

	p.langmap.Invalidate(ctx, job.ParentID)
	_ = p.events.LogJobEvent(ctx, model.EventLevelInfo, "Translation job completed", map[string]any{
		"job_id":        job.ID,
		"entity_id":     job.ParentID,
		"language":      job.Language,
		"translated_id": translatedID,
	})
	return nil
}

// Fail records a job failure with its human-readable error. Failed jobs
// are never silently dropped: they stay visible for operator retry.
func (p *Pipeline) Fail(ctx context.Context, job model.QueueJob, message string) error {
	if err := p.queries.FailJob(ctx, store.FailJobParams{
		ID:           job.ID,
		ErrorMessage: message,
		UpdatedAt:    time.Now(),
	}); err != nil {
		return err
	}

	_ = p.events.LogJobEvent(ctx, model.EventLevelWarning, "Translation job failed", map[string]any{
		"job_id":    job.ID,
		"entity_id": job.ParentID,
		"language":  job.Language,
		"error":     message,
	})
	return nil
}

// Retry resubmits one failed job.
func (p *Pipeline) Retry(ctx context.Context, jobID string) error {
	return p.queries.RetryJob(ctx, jobID, time.Now())
}

// ResetStale force-resets processing jobs older than the staleness
// threshold back to pending. This is the only recovery path for a
// crashed worker; there is no heartbeat.
func (p *Pipeline) ResetStale(ctx context.Context) (int64, error) {
	now := time.Now()
	reset, err := p.queries.ResetStaleJobs(ctx, now.Add(-model.StaleAfter), now)
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		p.logger.Warn("reset stale processing jobs", "count", reset)
	}
	return reset, nil
}

// ResetAllFailed resubmits every failed job.
func (p *Pipeline) ResetAllFailed(ctx context.Context) (int64, error) {
	reset, err := p.queries.ResetFailedJobs(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		p.logger.Info("resubmitted failed jobs", "count", reset)
	}
	return reset, nil
}

// List returns jobs matching the filter with their total count.
func (p *Pipeline) List(ctx context.Context, arg store.ListJobsParams) ([]model.QueueJob, int64, error) {
	jobs, err := p.queries.ListJobs(ctx, arg)
	if err != nil {
		return nil, 0, err
	}
	total, err := p.queries.CountJobs(ctx, arg)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}
