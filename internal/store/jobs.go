// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
)

// ErrNotClaimed is returned when a conditional status transition finds
// the job no longer in the expected state, usually because a concurrent
// worker got there first.
var ErrNotClaimed = errors.New("job not in expected state")

const jobColumns = `id, parent_id, translated_id, language, status, type, edited_fields, error_message, created_at, updated_at, claimed_at`

func scanJob(row interface{ Scan(...any) error }) (model.QueueJob, error) {
	var j model.QueueJob
	err := row.Scan(&j.ID, &j.ParentID, &j.TranslatedID, &j.Language, &j.Status,
		&j.Type, &j.EditedFields, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt, &j.ClaimedAt)
	return j, err
}

// CreateJobParams holds values for CreateJob.
type CreateJobParams struct {
	ID           string
	ParentID     int64
	Language     string
	Type         string
	EditedFields string
	CreatedAt    time.Time
}

// CreateJob inserts a new pending job.
func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) (model.QueueJob, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO queue_jobs (id, parent_id, language, status, type, edited_fields, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?, ?)
		RETURNING `+jobColumns,
		arg.ID, arg.ParentID, arg.Language, arg.Type, arg.EditedFields,
		arg.CreatedAt, arg.CreatedAt)
	return scanJob(row)
}

// GetJob returns a job by ID.
func (q *Queries) GetJob(ctx context.Context, id string) (model.QueueJob, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// HasJobForPair reports whether any job of any type or status exists for
// the (parent, language) pair.
func (q *Queries) HasJobForPair(ctx context.Context, parentID int64, language string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_jobs WHERE parent_id = ? AND language = ?`,
		parentID, language).Scan(&n)
	return n > 0, err
}

// HasPendingEditJob reports whether a pending EDIT job exists for the
// (parent, language) pair.
func (q *Queries) HasPendingEditJob(ctx context.Context, parentID int64, language string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_jobs
		WHERE parent_id = ? AND language = ? AND type = 'edit' AND status = 'pending'`,
		parentID, language).Scan(&n)
	return n > 0, err
}

// ClaimNextJob atomically claims the oldest pending job and moves it to
// processing. The claim is a conditional update on status so concurrent
// workers never take the same job. Returns sql.ErrNoRows when the queue
// is empty.
func (q *Queries) ClaimNextJob(ctx context.Context, now time.Time) (model.QueueJob, error) {
	for {
		var id string
		err := q.db.QueryRowContext(ctx, `
			SELECT id FROM queue_jobs WHERE status = 'pending'
			ORDER BY created_at LIMIT 1`).Scan(&id)
		if err != nil {
			return model.QueueJob{}, err
		}

		res, err := q.db.ExecContext(ctx, `
			UPDATE queue_jobs SET status = 'processing', claimed_at = ?, updated_at = ?
			WHERE id = ? AND status = 'pending'`, now, now, id)
		if err != nil {
			return model.QueueJob{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return model.QueueJob{}, err
		}
		if affected == 0 {
			// Lost the race for this job, try the next one.
			continue
		}
		return q.GetJob(ctx, id)
	}
}

// CompleteJobParams holds values for CompleteJob.
type CompleteJobParams struct {
	ID           string
	TranslatedID int64
	UpdatedAt    time.Time
}

// CompleteJob marks a processing job completed and records the entity it
// produced. The transition is conditional on the processing status.
func (q *Queries) CompleteJob(ctx context.Context, arg CompleteJobParams) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs SET status = 'completed', translated_id = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		arg.TranslatedID, arg.UpdatedAt, arg.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotClaimed
	}
	return nil
}

// FailJobParams holds values for FailJob.
type FailJobParams struct {
	ID           string
	ErrorMessage string
	UpdatedAt    time.Time
}

// FailJob marks a processing job failed with a human-readable error.
func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs SET status = 'failed', error_message = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		arg.ErrorMessage, arg.UpdatedAt, arg.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotClaimed
	}
	return nil
}

// RetryJob resubmits a failed job, re-entering at pending with the error
// cleared. Returns ErrNotClaimed if the job is not failed.
func (q *Queries) RetryJob(ctx context.Context, id string, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs SET status = 'pending', error_message = NULL, claimed_at = NULL, updated_at = ?
		WHERE id = ? AND status = 'failed'`, now, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotClaimed
	}
	return nil
}

// ResetStaleJobs force-resets processing jobs claimed before the cutoff
// back to pending and returns how many were reset.
func (q *Queries) ResetStaleJobs(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs SET status = 'pending', claimed_at = NULL, updated_at = ?
		WHERE status = 'processing' AND claimed_at < ?`, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResetFailedJobs resubmits every failed job and returns how many were reset.
func (q *Queries) ResetFailedJobs(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs SET status = 'pending', error_message = NULL, claimed_at = NULL, updated_at = ?
		WHERE status = 'failed'`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListJobsParams holds filter and pagination values for ListJobs.
type ListJobsParams struct {
	Status   string // empty matches all
	Type     string // empty matches all
	Language string // empty matches all
	Limit    int64
	Offset   int64
}

// ListJobs returns jobs matching the filter, newest first.
func (q *Queries) ListJobs(ctx context.Context, arg ListJobsParams) ([]model.QueueJob, error) {
	query := `SELECT ` + jobColumns + ` FROM queue_jobs WHERE 1=1`
	args := []any{}
	if arg.Status != "" {
		query += " AND status = ?"
		args = append(args, arg.Status)
	}
	if arg.Type != "" {
		query += " AND type = ?"
		args = append(args, arg.Type)
	}
	if arg.Language != "" {
		query += " AND language = ?"
		args = append(args, arg.Language)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.QueueJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CountJobs returns the number of jobs matching the filter.
func (q *Queries) CountJobs(ctx context.Context, arg ListJobsParams) (int64, error) {
	query := `SELECT COUNT(*) FROM queue_jobs WHERE 1=1`
	args := []any{}
	if arg.Status != "" {
		query += " AND status = ?"
		args = append(args, arg.Status)
	}
	if arg.Type != "" {
		query += " AND type = ?"
		args = append(args, arg.Type)
	}
	if arg.Language != "" {
		query += " AND language = ?"
		args = append(args, arg.Language)
	}
	var n int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}
