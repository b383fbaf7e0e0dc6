// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Entity statuses
const (
	EntityStatusDraft     = "draft"
	EntityStatusPublished = "published"
)

// Entity kinds tracked by the mirror system.
const (
	EntityKindPage     = "page"
	EntityKindPost     = "post"
	EntityKindCategory = "category"
	EntityKindTag      = "tag"
	EntityKindMenu     = "menu"
)

// Entity is the mirror system's view of a content item.
//
// An entity is either an original (Language is null) or a translation
// (Language set, OriginalID pointing at exactly one original). The
// language tag and the original pointer are always written together;
// translations never point at other translations.
type Entity struct {
	ID          int64          `json:"id"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Excerpt     string         `json:"excerpt"`
	Status      string         `json:"status"`
	Language    sql.NullString `json:"language,omitempty"`
	OriginalID  sql.NullInt64  `json:"original_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	PublishedAt sql.NullTime   `json:"published_at,omitempty"`
}

// IsPublished returns true if the entity is published.
func (e *Entity) IsPublished() bool {
	return e.Status == EntityStatusPublished
}

// IsTranslation returns true if the entity carries a language tag.
func (e *Entity) IsTranslation() bool {
	return e.Language.Valid && e.Language.String != ""
}

// Timestamp returns the entity's natural ordering timestamp: published
// time when available, creation time otherwise.
func (e *Entity) Timestamp() time.Time {
	if e.PublishedAt.Valid {
		return e.PublishedAt.Time
	}
	return e.CreatedAt
}

// Translation links an original entity to its mirror in one language.
// For example, page 1 (original) mirrored into Russian as page 7 would be:
// Translation { EntityID: 1, Language: "ru", TranslationID: 7 }
type Translation struct {
	ID            int64     `json:"id"`
	EntityID      int64     `json:"entity_id"`      // ID of the original entity
	Language      string    `json:"language"`       // language prefix this mirror is for
	TranslationID int64     `json:"translation_id"` // ID of the translated entity
	CreatedAt     time.Time `json:"created_at"`
}
