// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the mirror service.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with migrations applied.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "mirror-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// SeedLanguage inserts a language and returns it.
func SeedLanguage(t *testing.T, q *store.Queries, prefix, path string, isDefault bool) model.Language {
	t.Helper()

	now := time.Now()
	lang, err := q.CreateLanguage(context.Background(), store.CreateLanguageParams{
		Prefix:    prefix,
		Path:      path,
		Name:      prefix,
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seeding language %q: %v", prefix, err)
	}
	return lang
}

// SeedEntity inserts a published entity and returns it.
func SeedEntity(t *testing.T, q *store.Queries, title string) model.Entity {
	t.Helper()
	return seedEntity(t, q, title, model.EntityStatusPublished, time.Now())
}

// SeedEntityAt inserts a published entity with an explicit publish time.
func SeedEntityAt(t *testing.T, q *store.Queries, title string, publishedAt time.Time) model.Entity {
	t.Helper()
	return seedEntity(t, q, title, model.EntityStatusPublished, publishedAt)
}

// SeedDraftEntity inserts a draft entity and returns it.
func SeedDraftEntity(t *testing.T, q *store.Queries, title string) model.Entity {
	t.Helper()
	return seedEntity(t, q, title, model.EntityStatusDraft, time.Time{})
}

func seedEntity(t *testing.T, q *store.Queries, title, status string, publishedAt time.Time) model.Entity {
	t.Helper()

	now := time.Now()
	published := sql.NullTime{}
	if !publishedAt.IsZero() {
		published = sql.NullTime{Time: publishedAt, Valid: true}
	}
	entity, err := q.CreateEntity(context.Background(), store.CreateEntityParams{
		Kind:        model.EntityKindPage,
		Title:       title,
		Body:        "<p>" + title + "</p>",
		Excerpt:     title,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: published,
	})
	if err != nil {
		t.Fatalf("seeding entity %q: %v", title, err)
	}
	return entity
}

// SeedTranslation inserts a published mirror entity for original in the
// given language, tags it, and records the translation pointer.
func SeedTranslation(t *testing.T, q *store.Queries, original model.Entity, language string) model.Entity {
	t.Helper()

	mirror := seedEntity(t, q, original.Title+" ("+language+")", model.EntityStatusPublished, time.Now())
	ctx := context.Background()

	if err := q.TagEntityLanguage(ctx, store.TagEntityLanguageParams{
		ID:         mirror.ID,
		Language:   language,
		OriginalID: original.ID,
		UpdatedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("tagging mirror entity: %v", err)
	}
	if err := q.UpsertTranslation(ctx, store.UpsertTranslationParams{
		EntityID:      original.ID,
		Language:      language,
		TranslationID: mirror.ID,
		CreatedAt:     time.Now(),
	}); err != nil {
		t.Fatalf("recording translation pointer: %v", err)
	}

	mirror, err := q.GetEntity(ctx, mirror.ID)
	if err != nil {
		t.Fatalf("reloading mirror entity: %v", err)
	}
	return mirror
}
