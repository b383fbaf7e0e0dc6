// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/ocms-mirror/internal/cache"
	"github.com/olegiv/ocms-mirror/internal/langmap"
	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/registry"
	"github.com/olegiv/ocms-mirror/internal/service"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/testutil"
)

func testPipeline(t *testing.T) (*Pipeline, *store.Queries, *sql.DB) {
	t.Helper()

	db := testutil.TestDB(t)
	q := store.New(db)

	c := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })

	reg := registry.New(q)
	ctx := context.Background()
	seed := []registry.AddParams{
		{Prefix: "en", Name: "English", IsDefault: true, Position: 1},
		{Prefix: "fr", Name: "French", Position: 2},
		{Prefix: "de", Name: "German", Position: 3},
	}
	for _, arg := range seed {
		if _, err := reg.Add(ctx, arg); err != nil {
			t.Fatalf("seeding language %q: %v", arg.Prefix, err)
		}
	}

	p := New(db, reg, langmap.New(q, c), service.NewEventService(db), testutil.TestLogger())
	return p, q, db
}

func TestEnqueueNewCreatesJobPerMirrorLanguage(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	entity := testutil.SeedEntity(t, q, "Launch post")

	created, err := p.EnqueueNew(ctx, entity.ID)
	if err != nil {
		t.Fatalf("EnqueueNew: %v", err)
	}
	if created != 2 {
		t.Errorf("created %d jobs, want 2 (fr, de)", created)
	}

	jobs, err := q.ListJobs(ctx, store.ListJobsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	for _, j := range jobs {
		if j.Status != model.JobStatusPending || j.Type != model.JobTypeNew {
			t.Errorf("job %s: status=%s type=%s", j.ID, j.Status, j.Type)
		}
	}
}

func TestEnqueueNewIsIdempotent(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	entity := testutil.SeedEntity(t, q, "Launch post")

	if _, err := p.EnqueueNew(ctx, entity.ID); err != nil {
		t.Fatalf("first EnqueueNew: %v", err)
	}
	created, err := p.EnqueueNew(ctx, entity.ID)
	if err != nil {
		t.Fatalf("second EnqueueNew: %v", err)
	}
	if created != 0 {
		t.Errorf("republish created %d extra jobs, want 0", created)
	}
}

func TestEnqueueNewSkipsTranslations(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Original")
	mirror := testutil.SeedTranslation(t, q, original, "fr")

	created, err := p.EnqueueNew(ctx, mirror.ID)
	if err != nil {
		t.Fatalf("EnqueueNew: %v", err)
	}
	if created != 0 {
		t.Errorf("translation enqueued %d jobs, want 0", created)
	}
}

func TestEnqueueEditRequiresCompletedTranslation(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	entity := testutil.SeedEntity(t, q, "Post")
	// Only fr has a completed translation.
	testutil.SeedTranslation(t, q, entity, "fr")

	created, err := p.EnqueueEdit(ctx, entity.ID, []string{"title"})
	if err != nil {
		t.Fatalf("EnqueueEdit: %v", err)
	}
	if created != 1 {
		t.Errorf("created %d edit jobs, want 1 (fr only)", created)
	}

	jobs, err := q.ListJobs(ctx, store.ListJobsParams{Type: model.JobTypeEdit, Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Language != "fr" {
		t.Fatalf("jobs: %+v", jobs)
	}
	if fields := jobs[0].EditedFieldList(); len(fields) != 1 || fields[0] != "title" {
		t.Errorf("edited fields: %v", fields)
	}
}

func TestEnqueueEditAbsorbsWhilePending(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	entity := testutil.SeedEntity(t, q, "Post")
	testutil.SeedTranslation(t, q, entity, "fr")

	if _, err := p.EnqueueEdit(ctx, entity.ID, []string{"title"}); err != nil {
		t.Fatalf("first EnqueueEdit: %v", err)
	}
	created, err := p.EnqueueEdit(ctx, entity.ID, []string{"body"})
	if err != nil {
		t.Fatalf("second EnqueueEdit: %v", err)
	}
	if created != 0 {
		t.Errorf("pending edit job did not absorb, created %d", created)
	}

	// Once the pending job is claimed, a new edit may queue again.
	if _, err := q.ClaimNextJob(ctx, time.Now()); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	created, err = p.EnqueueEdit(ctx, entity.ID, []string{"body"})
	if err != nil {
		t.Fatalf("third EnqueueEdit: %v", err)
	}
	if created != 1 {
		t.Errorf("post-claim edit created %d jobs, want 1", created)
	}
}

func TestCompleteWritesPointerTagAndStatus(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	parent := testutil.SeedEntity(t, q, "Parent")
	produced := testutil.SeedEntity(t, q, "Produced")

	job, err := q.CreateJob(ctx, store.CreateJobParams{
		ID: "job-1", ParentID: parent.ID, Language: "fr",
		Type: model.JobTypeNew, EditedFields: "[]", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := q.ClaimNextJob(ctx, time.Now()); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	if err := p.Complete(ctx, job, produced.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	ptr, err := q.GetTranslationPointer(ctx, parent.ID, "fr")
	if err != nil || ptr != produced.ID {
		t.Errorf("pointer: got (%d, %v), want %d", ptr, err, produced.ID)
	}

	tagged, err := q.GetEntity(ctx, produced.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if !tagged.Language.Valid || tagged.Language.String != "fr" {
		t.Errorf("language tag: %+v", tagged.Language)
	}
	if !tagged.OriginalID.Valid || tagged.OriginalID.Int64 != parent.ID {
		t.Errorf("original pointer: %+v", tagged.OriginalID)
	}

	done, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if done.Status != model.JobStatusCompleted {
		t.Errorf("status: got %s, want completed", done.Status)
	}
	if !done.TranslatedID.Valid || done.TranslatedID.Int64 != produced.ID {
		t.Errorf("translated_id: %+v", done.TranslatedID)
	}
}

func TestCompleteRejectsUnclaimedJob(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	parent := testutil.SeedEntity(t, q, "Parent")
	produced := testutil.SeedEntity(t, q, "Produced")

	job, err := q.CreateJob(ctx, store.CreateJobParams{
		ID: "job-1", ParentID: parent.ID, Language: "fr",
		Type: model.JobTypeNew, EditedFields: "[]", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Still pending: the conditional completion must refuse, and the
	// refused transaction must leave no pointer behind.
	err = p.Complete(ctx, job, produced.ID)
	if !errors.Is(err, store.ErrNotClaimed) {
		t.Fatalf("got %v, want ErrNotClaimed", err)
	}
	if _, err := q.GetTranslationPointer(ctx, parent.ID, "fr"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("pointer leaked from aborted completion: %v", err)
	}
}

func TestFailAndRetry(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	parent := testutil.SeedEntity(t, q, "Parent")
	if _, err := q.CreateJob(ctx, store.CreateJobParams{
		ID: "job-1", ParentID: parent.ID, Language: "fr",
		Type: model.JobTypeNew, EditedFields: "[]", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	job, err := q.ClaimNextJob(ctx, time.Now())
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	if err := p.Fail(ctx, job, "provider exploded"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	failed, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if failed.Status != model.JobStatusFailed {
		t.Errorf("status: %s", failed.Status)
	}
	if !failed.ErrorMessage.Valid || failed.ErrorMessage.String != "provider exploded" {
		t.Errorf("error message: %+v", failed.ErrorMessage)
	}

	if err := p.Retry(ctx, job.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	retried, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if retried.Status != model.JobStatusPending {
		t.Errorf("retried status: %s", retried.Status)
	}
	if retried.ErrorMessage.Valid {
		t.Errorf("error message survived retry: %+v", retried.ErrorMessage)
	}

	// Retrying a non-failed job refuses.
	if err := p.Retry(ctx, job.ID); !errors.Is(err, store.ErrNotClaimed) {
		t.Errorf("retry of pending job: got %v, want ErrNotClaimed", err)
	}
}

func TestResetStaleReclaimsOldProcessingJobs(t *testing.T) {
	p, q, db := testPipeline(t)
	ctx := context.Background()

	parent := testutil.SeedEntity(t, q, "Parent")
	if _, err := q.CreateJob(ctx, store.CreateJobParams{
		ID: "stale-job", ParentID: parent.ID, Language: "fr",
		Type: model.JobTypeNew, EditedFields: "[]", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := q.ClaimNextJob(ctx, time.Now()); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	// A fresh claim is not stale.
	reset, err := p.ResetStale(ctx)
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if reset != 0 {
		t.Errorf("fresh claim reset: %d", reset)
	}

	// Age the claim past the threshold.
	if _, err := db.ExecContext(ctx,
		`UPDATE queue_jobs SET claimed_at = ? WHERE id = 'stale-job'`,
		time.Now().Add(-model.StaleAfter-time.Minute)); err != nil {
		t.Fatalf("aging claim: %v", err)
	}

	reset, err = p.ResetStale(ctx)
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if reset != 1 {
		t.Errorf("reset %d jobs, want 1", reset)
	}

	job, err := q.GetJob(ctx, "stale-job")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("status after sweep: %s", job.Status)
	}
	if job.ClaimedAt.Valid {
		t.Errorf("claimed_at survived sweep: %+v", job.ClaimedAt)
	}
}

func TestBackfillSkipsTranslatedAndQueuedPairs(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	translated := testutil.SeedEntity(t, q, "Translated")
	testutil.SeedTranslation(t, q, translated, "fr")
	pending := testutil.SeedEntity(t, q, "Queued")
	if _, err := q.CreateJob(ctx, store.CreateJobParams{
		ID: "pre-existing", ParentID: pending.ID, Language: "fr",
		Type: model.JobTypeNew, EditedFields: "[]", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	testutil.SeedEntity(t, q, "Fresh")
	testutil.SeedDraftEntity(t, q, "Draft")

	created, err := p.Backfill(ctx, BackfillParams{})
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}

	// translated: de only (fr covered by pointer). pending: de only
	// (fr covered by the queued job). fresh: fr and de. draft: skipped.
	if created != 4 {
		t.Errorf("created %d jobs, want 4", created)
	}

	// Second scan finds nothing left to do.
	created, err = p.Backfill(ctx, BackfillParams{})
	if err != nil {
		t.Fatalf("second Backfill: %v", err)
	}
	if created != 0 {
		t.Errorf("rescan created %d jobs, want 0", created)
	}
}

func TestObserveFieldsBaselineThenDiff(t *testing.T) {
	p, q, _ := testPipeline(t)
	ctx := context.Background()

	entity := testutil.SeedEntity(t, q, "Post")
	testutil.SeedTranslation(t, q, entity, "fr")

	// First observation is a baseline capture, not an edit.
	changed, err := p.ObserveFields(ctx, entity.ID, map[string]string{
		"title": "v1", "body": "b1",
	})
	if err != nil {
		t.Fatalf("first ObserveFields: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("baseline reported changes: %v", changed)
	}

	// Unchanged values stay quiet.
	changed, err = p.ObserveFields(ctx, entity.ID, map[string]string{
		"title": "v1", "body": "b1",
	})
	if err != nil {
		t.Fatalf("second ObserveFields: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("no-op observation reported changes: %v", changed)
	}

	// A drifted field queues an edit job carrying just that field.
	changed, err = p.ObserveFields(ctx, entity.ID, map[string]string{
		"title": "v2", "body": "b1",
	})
	if err != nil {
		t.Fatalf("third ObserveFields: %v", err)
	}
	if len(changed) != 1 || changed[0] != "title" {
		t.Fatalf("changed: %v", changed)
	}

	jobs, err := q.ListJobs(ctx, store.ListJobsParams{Type: model.JobTypeEdit, Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("edit jobs: %d", len(jobs))
	}
	if fields := jobs[0].EditedFieldList(); len(fields) != 1 || fields[0] != "title" {
		t.Errorf("edited fields on job: %v", fields)
	}
}
