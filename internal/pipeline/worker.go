// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/ocms-mirror/internal/model"
)

// Executor performs the actual content duplication and translation for
// one claimed job. Implementations own the network call, its timeouts
// and any provider-side retries; re-processing after a staleness reset
// must be safe to redo from scratch.
type Executor interface {
	Translate(ctx context.Context, job model.QueueJob, parent model.Entity) (int64, error)
}

// Worker claims pending jobs one at a time and drives them through the
// executor. Several workers may run concurrently: the conditional claim
// in the store guarantees single-writer-per-job.
type Worker struct {
	pipeline *Pipeline
	executor Executor
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker polling at the given interval. maxPerSec
// caps executor calls; zero means unlimited.
func NewWorker(p *Pipeline, ex Executor, interval time.Duration, maxPerSec float64, logger *slog.Logger) *Worker {
	limit := rate.Inf
	if maxPerSec > 0 {
		limit = rate.Limit(maxPerSec)
	}
	return &Worker{
		pipeline: p,
		executor: ex,
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
		logger:   logger,
	}
}

// Run claims and processes jobs until the context is cancelled. An empty
// queue sleeps for the poll interval; a processed job (success or
// failure) immediately polls again.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("translation worker started", "poll_interval", w.interval)
	for {
		processed, err := w.processOne(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("translation worker stopped")
			return
		case <-time.After(w.interval):
		}
	}
}

// processOne claims the next pending job and processes it. Returns false
// when the queue is empty.
func (w *Worker) processOne(ctx context.Context) (bool, error) {
	job, err := w.pipeline.queries.ClaimNextJob(ctx, time.Now())
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}

	parent, err := w.pipeline.queries.GetEntity(ctx, job.ParentID)
	if err != nil {
		failErr := w.pipeline.Fail(ctx, job, fmt.Sprintf("loading parent entity %d: %v", job.ParentID, err))
		return true, failErr
	}

	if err := w.limiter.Wait(ctx); err != nil {
		// Shutting down mid-claim: leave the job in processing, the
		// staleness sweep will hand it back to the queue.
		return true, err
	}

	translatedID, err := w.executor.Translate(ctx, job, parent)
	if err != nil {
		w.logger.Warn("translation failed",
			"job_id", job.ID, "entity_id", job.ParentID, "language", job.Language, "error", err)
		return true, w.pipeline.Fail(ctx, job, err.Error())
	}

	if err := w.pipeline.Complete(ctx, job, translatedID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}

	w.logger.Info("translation job completed",
		"job_id", job.ID, "entity_id", job.ParentID, "language", job.Language,
		"translated_id", translatedID)
	return true, nil
}
