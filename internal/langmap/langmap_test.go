// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package langmap

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/ocms-mirror/internal/cache"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/testutil"
)

func testMap(t *testing.T) (*Map, *store.Queries, *sql.DB) {
	t.Helper()

	db := testutil.TestDB(t)
	q := store.New(db)

	c := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })

	return New(q, c), q, db
}

func TestResolveExactPrefix(t *testing.T) {
	m, q, _ := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")
	mirror := testutil.SeedTranslation(t, q, original, "fr")

	id, ok, err := m.Resolve(ctx, original.ID, "fr")
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if id != mirror.ID {
		t.Errorf("got %d, want %d", id, mirror.ID)
	}
}

func TestResolveFallbackChain(t *testing.T) {
	m, q, _ := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")
	mirror := testutil.SeedTranslation(t, q, original, "fr")

	// No fr-CA translation exists; the base locale "fr" must serve.
	id, ok, err := m.Resolve(ctx, original.ID, "fr-CA")
	if err != nil || !ok {
		t.Fatalf("Resolve fr-CA: ok=%v err=%v", ok, err)
	}
	if id != mirror.ID {
		t.Errorf("base-locale fallback: got %d, want %d", id, mirror.ID)
	}
}

func TestResolveNormalizedPrefix(t *testing.T) {
	m, q, _ := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")
	mirror := testutil.SeedTranslation(t, q, original, "fr2")

	id, ok, err := m.Resolve(ctx, original.ID, "FR-2")
	if err != nil || !ok {
		t.Fatalf("Resolve FR-2: ok=%v err=%v", ok, err)
	}
	if id != mirror.ID {
		t.Errorf("normalized fallback: got %d, want %d", id, mirror.ID)
	}
}

func TestResolveMissIsNotAnError(t *testing.T) {
	m, q, _ := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")

	id, ok, err := m.Resolve(ctx, original.ID, "de")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok || id != 0 {
		t.Errorf("miss: got (%d, %v), want (0, false)", id, ok)
	}
}

func TestResolveSkipsUnpublishedTranslation(t *testing.T) {
	m, q, db := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")
	mirror := testutil.SeedTranslation(t, q, original, "fr")

	// Unpublish the mirror; the pointer remains but must not resolve.
	if _, err := db.ExecContext(ctx,
		`UPDATE entities SET status = 'draft' WHERE id = ?`, mirror.ID); err != nil {
		t.Fatalf("unpublishing mirror: %v", err)
	}

	_, ok, err := m.Resolve(ctx, original.ID, "fr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("unpublished translation must not resolve")
	}
}

func TestResolveLiveFallbackWithoutPointer(t *testing.T) {
	m, q, db := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")
	mirror := testutil.SeedTranslation(t, q, original, "fr")

	// Remove the pointer row to simulate an entity translated before
	// pointers were recorded. The tagged entity must still be found.
	if _, err := db.ExecContext(ctx,
		`DELETE FROM translations WHERE entity_id = ?`, original.ID); err != nil {
		t.Fatalf("deleting pointer: %v", err)
	}
	m.Invalidate(ctx, original.ID)

	id, ok, err := m.Resolve(ctx, original.ID, "fr")
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if id != mirror.ID {
		t.Errorf("live fallback: got %d, want %d", id, mirror.ID)
	}
}

func TestResolveOriginal(t *testing.T) {
	m, q, _ := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")
	mirror := testutil.SeedTranslation(t, q, original, "fr")

	got, err := m.ResolveOriginal(ctx, mirror.ID)
	if err != nil {
		t.Fatalf("ResolveOriginal(mirror): %v", err)
	}
	if got != original.ID {
		t.Errorf("mirror: got %d, want %d", got, original.ID)
	}

	got, err = m.ResolveOriginal(ctx, original.ID)
	if err != nil {
		t.Fatalf("ResolveOriginal(original): %v", err)
	}
	if got != original.ID {
		t.Errorf("original: got %d, want %d", got, original.ID)
	}
}

func TestInvalidateDropsStaleCache(t *testing.T) {
	m, q, _ := testMap(t)
	ctx := context.Background()

	original := testutil.SeedEntity(t, q, "Home")

	// Prime the cache with the empty pointer map.
	if _, ok, err := m.Resolve(ctx, original.ID, "fr"); err != nil || ok {
		t.Fatalf("prime: ok=%v err=%v", ok, err)
	}

	mirror := testutil.SeedTranslation(t, q, original, "fr")
	m.Invalidate(ctx, original.ID)

	id, ok, err := m.Resolve(ctx, original.ID, "fr")
	if err != nil || !ok {
		t.Fatalf("after invalidate: ok=%v err=%v", ok, err)
	}
	if id != mirror.ID {
		t.Errorf("got %d, want %d", id, mirror.ID)
	}
}
