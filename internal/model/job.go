// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job types
const (
	JobTypeNew  = "new"  // entity published for the first time
	JobTypeEdit = "edit" // watched fields drifted on a translated original
	JobTypeOld  = "old"  // backfill scan found a missing mirror
)

// StaleAfter is the age at which a processing job is presumed abandoned
// and becomes eligible for a reset back to pending.
const StaleAfter = 5 * time.Minute

// QueueJob is one unit of translation work: mirror one original entity
// into one language. Jobs move pending -> processing -> completed/failed;
// a stale processing job may be force-reset to pending, and a failed job
// may be resubmitted, re-entering at pending.
type QueueJob struct {
	ID           string         `json:"id"` // UUID
	ParentID     int64          `json:"parent_entity_id"`
	TranslatedID sql.NullInt64  `json:"translated_entity_id,omitempty"`
	Language     string         `json:"language"`
	Status       string         `json:"status"`
	Type         string         `json:"type"`
	EditedFields string         `json:"edited_fields,omitempty"` // JSON array, EDIT only
	ErrorMessage sql.NullString `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ClaimedAt    sql.NullTime   `json:"claimed_at,omitempty"`
}

// EditedFieldList decodes the edited-field names carried by an EDIT job.
func (j *QueueJob) EditedFieldList() []string {
	if j.EditedFields == "" {
		return nil
	}
	var fields []string
	if err := json.Unmarshal([]byte(j.EditedFields), &fields); err != nil {
		return nil
	}
	return fields
}

// EncodeEditedFields encodes field names for storage on an EDIT job.
func EncodeEditedFields(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

// IsStale reports whether a processing job is older than the staleness
// threshold at the given instant.
func (j *QueueJob) IsStale(now time.Time) bool {
	if j.Status != JobStatusProcessing || !j.ClaimedAt.Valid {
		return false
	}
	return now.Sub(j.ClaimedAt.Time) > StaleAfter
}

// FieldSnapshot stores the last-seen value of one watched field on an
// original entity. Used only to detect drift for EDIT-job creation.
type FieldSnapshot struct {
	EntityID  int64     `json:"entity_id"`
	Field     string    `json:"field"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchedFields are the entity fields observed for edit detection.
var WatchedFields = []string{"title", "body", "excerpt"}
