// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/testutil"
)

func TestDebouncerCoalescesPerKey(t *testing.T) {
	p, q, _ := testPipeline(t)
	entity := testutil.SeedEntity(t, q, "Post")

	// Long window so nothing fires on its own during the test.
	d := NewDebouncer(p, time.Hour, testutil.TestLogger())
	defer d.Stop()

	d.NotifyPublished(entity.ID)
	d.NotifyPublished(entity.ID)
	d.NotifyPublished(entity.ID)

	if n := d.PendingCount(); n != 1 {
		t.Fatalf("pending count: got %d, want 1", n)
	}

	d.Flush()
	d.Stop()

	jobs, err := q.ListJobs(context.Background(), store.ListJobsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("got %d jobs, want 2 (fr, de from a single trigger)", len(jobs))
	}
}

func TestDebouncerSeparatesReasons(t *testing.T) {
	p, q, _ := testPipeline(t)
	entity := testutil.SeedEntity(t, q, "Post")

	d := NewDebouncer(p, time.Hour, testutil.TestLogger())
	defer d.Stop()

	d.NotifyPublished(entity.ID)
	d.NotifyEdited(entity.ID, map[string]string{"title": "v1"})

	if n := d.PendingCount(); n != 2 {
		t.Errorf("pending count: got %d, want 2", n)
	}
}

func TestDebouncerMergesEditedFields(t *testing.T) {
	p, q, _ := testPipeline(t)
	entity := testutil.SeedEntity(t, q, "Post")
	testutil.SeedTranslation(t, q, entity, "fr")

	// Baseline snapshots so the merged observation registers as drift.
	ctx := context.Background()
	if _, err := p.ObserveFields(ctx, entity.ID, map[string]string{
		"title": "v1", "body": "b1",
	}); err != nil {
		t.Fatalf("baseline: %v", err)
	}

	d := NewDebouncer(p, time.Hour, testutil.TestLogger())
	d.NotifyEdited(entity.ID, map[string]string{"title": "v2"})
	d.NotifyEdited(entity.ID, map[string]string{"body": "b2"})
	d.Stop()

	jobs, err := q.ListJobs(ctx, store.ListJobsParams{Type: model.JobTypeEdit, Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d edit jobs, want 1", len(jobs))
	}
	fields := jobs[0].EditedFieldList()
	if len(fields) != 2 {
		t.Errorf("merged fields: %v", fields)
	}
}

func TestDebouncerStopIsDrainComplete(t *testing.T) {
	p, q, _ := testPipeline(t)
	entity := testutil.SeedEntity(t, q, "Post")

	d := NewDebouncer(p, time.Hour, testutil.TestLogger())
	d.NotifyPublished(entity.ID)
	d.Stop()

	// After Stop returns, the dispatch has finished and the jobs exist.
	jobs, err := q.ListJobs(context.Background(), store.ListJobsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("got %d jobs after Stop, want 2", len(jobs))
	}
	if n := d.PendingCount(); n != 0 {
		t.Errorf("pending after Stop: %d", n)
	}
}
