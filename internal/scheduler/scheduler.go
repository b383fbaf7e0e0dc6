// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler wires the recurring maintenance jobs: the
// stale-processing sweep and the optional scheduled backfill.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-mirror/internal/pipeline"
	"github.com/olegiv/ocms-mirror/internal/service"
)

// eventRetention is how long audit events are kept before cleanup.
const eventRetention = 90 * 24 * time.Hour

// Scheduler handles recurring pipeline maintenance.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	events   *service.EventService
	logger   *slog.Logger

	// backfillSpec optionally schedules a recurring full backfill scan.
	backfillSpec string
}

// New creates a new scheduler instance.
func New(p *pipeline.Pipeline, events *service.EventService, backfillSpec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		pipeline:     p,
		events:       events,
		logger:       logger,
		backfillSpec: backfillSpec,
	}
}

// Start registers the cron entries and begins the scheduler.
func (s *Scheduler) Start() error {
	// Sweep stuck processing jobs every minute. Age is the only
	// crash-detection signal; there is no heartbeat.
	if _, err := s.cron.AddFunc("* * * * *", func() {
		if _, err := s.pipeline.ResetStale(context.Background()); err != nil {
			s.logger.Error("failed to reset stale jobs", "error", err)
		}
	}); err != nil {
		return err
	}

	// Clean old audit events nightly.
	if _, err := s.cron.AddFunc("30 2 * * *", func() {
		if err := s.events.DeleteOldEvents(context.Background(), eventRetention); err != nil {
			s.logger.Error("failed to clean old events", "error", err)
		}
	}); err != nil {
		return err
	}

	if s.backfillSpec != "" {
		if _, err := s.cron.AddFunc(s.backfillSpec, func() {
			if _, err := s.pipeline.Backfill(context.Background(), pipeline.BackfillParams{}); err != nil {
				s.logger.Error("scheduled backfill failed", "error", err)
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
