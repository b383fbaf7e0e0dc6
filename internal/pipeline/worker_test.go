// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/testutil"
)

// executorFunc adapts a function to the Executor interface.
type executorFunc func(ctx context.Context, job model.QueueJob, parent model.Entity) (int64, error)

func (f executorFunc) Translate(ctx context.Context, job model.QueueJob, parent model.Entity) (int64, error) {
	return f(ctx, job, parent)
}

func TestWorkerProcessOneEmptyQueue(t *testing.T) {
	p, _, _ := testPipeline(t)

	w := NewWorker(p, executorFunc(func(context.Context, model.QueueJob, model.Entity) (int64, error) {
		t.Fatal("executor called with empty queue")
		return 0, nil
	}), time.Second, 0, testutil.TestLogger())

	processed, err := w.processOne(context.Background())
	if err != nil {
		t.Fatalf("processOne: %v", err)
	}
	if processed {
		t.Error("empty queue reported as processed")
	}
}

func TestWorkerProcessOneSuccess(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	parent := testutil.SeedEntity(t, q, "Post")
	produced := testutil.SeedEntity(t, q, "Post FR")
	if _, err := p.EnqueueNew(ctx, parent.ID); err != nil {
		t.Fatalf("EnqueueNew: %v", err)
	}

	var gotJob model.QueueJob
	w := NewWorker(p, executorFunc(func(_ context.Context, job model.QueueJob, par model.Entity) (int64, error) {
		gotJob = job
		if par.ID != parent.ID {
			t.Errorf("executor parent: got %d, want %d", par.ID, parent.ID)
		}
		return produced.ID, nil
	}), time.Second, 0, testutil.TestLogger())

	processed, err := w.processOne(ctx)
	if err != nil {
		t.Fatalf("processOne: %v", err)
	}
	if !processed {
		t.Fatal("job not processed")
	}

	done, err := q.GetJob(ctx, gotJob.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if done.Status != model.JobStatusCompleted {
		t.Errorf("status: %s", done.Status)
	}

	ptr, err := q.GetTranslationPointer(ctx, parent.ID, gotJob.Language)
	if err != nil || ptr != produced.ID {
		t.Errorf("pointer: got (%d, %v), want %d", ptr, err, produced.ID)
	}
}

func TestWorkerProcessOneExecutorFailure(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	parent := testutil.SeedEntity(t, q, "Post")
	if _, err := p.EnqueueNew(ctx, parent.ID); err != nil {
		t.Fatalf("EnqueueNew: %v", err)
	}

	w := NewWorker(p, executorFunc(func(context.Context, model.QueueJob, model.Entity) (int64, error) {
		return 0, errors.New("provider unavailable")
	}), time.Second, 0, testutil.TestLogger())

	processed, err := w.processOne(ctx)
	if err != nil {
		t.Fatalf("processOne: %v", err)
	}
	if !processed {
		t.Fatal("failed job not counted as processed")
	}

	jobs, err := q.ListJobs(ctx, store.ListJobsParams{Status: model.JobStatusFailed, Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("failed jobs: %d", len(jobs))
	}
	if !jobs[0].ErrorMessage.Valid || jobs[0].ErrorMessage.String != "provider unavailable" {
		t.Errorf("error message: %+v", jobs[0].ErrorMessage)
	}
}

func TestWorkerDrainsQueueOldestFirst(t *testing.T) {
	p, q, db := testPipeline(t)
	ctx := context.Background()

	first := testutil.SeedEntity(t, q, "First")
	second := testutil.SeedEntity(t, q, "Second")
	if _, err := p.EnqueueNew(ctx, first.ID); err != nil {
		t.Fatalf("EnqueueNew first: %v", err)
	}
	if _, err := p.EnqueueNew(ctx, second.ID); err != nil {
		t.Fatalf("EnqueueNew second: %v", err)
	}
	// Same-millisecond inserts can tie on created_at; spread them out.
	if _, err := db.ExecContext(ctx,
		`UPDATE queue_jobs SET created_at = ? WHERE parent_id = ?`,
		time.Now().Add(-time.Hour), first.ID); err != nil {
		t.Fatalf("aging jobs: %v", err)
	}

	var order []int64
	w := NewWorker(p, executorFunc(func(_ context.Context, job model.QueueJob, _ model.Entity) (int64, error) {
		order = append(order, job.ParentID)
		mirror := testutil.SeedEntity(t, q, "Mirror")
		return mirror.ID, nil
	}), time.Second, 0, testutil.TestLogger())

	for {
		processed, err := w.processOne(ctx)
		if err != nil {
			t.Fatalf("processOne: %v", err)
		}
		if !processed {
			break
		}
	}

	if len(order) != 4 {
		t.Fatalf("processed %d jobs, want 4", len(order))
	}
	if order[0] != first.ID || order[1] != first.ID {
		t.Errorf("older jobs did not run first: %v", order)
	}
}
