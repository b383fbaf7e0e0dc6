// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
	"github.com/olegiv/ocms-mirror/internal/testutil"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(store.New(testutil.TestDB(t)))
}

func TestURLSegment(t *testing.T) {
	tests := []struct {
		name string
		lang model.Language
		want string
	}{
		{"path wins over prefix", model.Language{Prefix: "fr", Path: "french"}, "french"},
		{"prefix fallback", model.Language{Prefix: "fr"}, "fr"},
		{"prefix keeps case", model.Language{Prefix: "FR"}, "FR"},
		{"prefix trimmed", model.Language{Prefix: "/fr-/"}, "fr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLSegment(tt.lang); got != tt.want {
				t.Errorf("URLSegment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddRejectsExactPrefixDuplicate(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, AddParams{Prefix: "fr", Name: "French"}); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	_, err := reg.Add(ctx, AddParams{Prefix: "fr", Name: "French again"})
	if !errors.Is(err, ErrPrefixTaken) {
		t.Errorf("duplicate prefix: got %v, want ErrPrefixTaken", err)
	}
}

func TestAddAllowsCaseVariantPrefixes(t *testing.T) {
	// Prefix comparison is exact: "FR" and "fr" are distinct operator
	// keys even though their URL segments would collide, so the path
	// check rejects the pair instead.
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, AddParams{Prefix: "fr", Name: "French"}); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	_, err := reg.Add(ctx, AddParams{Prefix: "FR", Name: "French upper"})
	if !errors.Is(err, ErrPathCollision) {
		t.Errorf("case-variant prefix: got %v, want ErrPathCollision", err)
	}

	// With a distinct path the case-variant prefix is accepted.
	if _, err := reg.Add(ctx, AddParams{Prefix: "FR", Path: "francais", Name: "French upper"}); err != nil {
		t.Errorf("case-variant prefix with own path: %v", err)
	}
}

func TestAddRejectsNormalizedPathCollision(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, AddParams{Prefix: "fr", Path: "french", Name: "French"}); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	_, err := reg.Add(ctx, AddParams{Prefix: "fr2", Path: "French", Name: "Second French"})
	if !errors.Is(err, ErrPathCollision) {
		t.Errorf("normalized path duplicate: got %v, want ErrPathCollision", err)
	}
}

func TestAddRejectsEmptyPrefix(t *testing.T) {
	reg := testRegistry(t)

	_, err := reg.Add(context.Background(), AddParams{Prefix: ""})
	if !errors.Is(err, ErrEmptyPrefix) {
		t.Errorf("empty prefix: got %v, want ErrEmptyPrefix", err)
	}
}

func TestUpdateSkipsSelfCollision(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	lang, err := reg.Add(ctx, AddParams{Prefix: "fr", Path: "french", Name: "French"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Re-saving the same values must not collide with itself.
	if _, err := reg.Update(ctx, UpdateParams{
		ID: lang.ID, Prefix: "fr", Path: "french", Name: "French (renamed)",
	}); err != nil {
		t.Errorf("Update with unchanged segment: %v", err)
	}
}

func TestDefaultFallsBackToFirstEntry(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, ok, err := reg.Default(ctx); err != nil || ok {
		t.Fatalf("empty registry: got ok=%v err=%v, want ok=false", ok, err)
	}

	first, err := reg.Add(ctx, AddParams{Prefix: "en", Name: "English", Position: 1})
	if err != nil {
		t.Fatalf("Add en: %v", err)
	}
	if _, err := reg.Add(ctx, AddParams{Prefix: "fr", Name: "French", Position: 2}); err != nil {
		t.Fatalf("Add fr: %v", err)
	}

	def, ok, err := reg.Default(ctx)
	if err != nil || !ok {
		t.Fatalf("Default: ok=%v err=%v", ok, err)
	}
	if def.ID != first.ID {
		t.Errorf("unflagged default: got %q, want first entry %q", def.Prefix, first.Prefix)
	}

	// A flagged default wins over registry order.
	flagged, err := reg.Add(ctx, AddParams{Prefix: "de", Name: "German", IsDefault: true, Position: 3})
	if err != nil {
		t.Fatalf("Add de: %v", err)
	}
	def, ok, err = reg.Default(ctx)
	if err != nil || !ok {
		t.Fatalf("Default: ok=%v err=%v", ok, err)
	}
	if def.ID != flagged.ID {
		t.Errorf("flagged default: got %q, want %q", def.Prefix, flagged.Prefix)
	}
}

func TestMirrorLanguagesExcludesDefault(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, AddParams{Prefix: "en", Name: "English", IsDefault: true}); err != nil {
		t.Fatalf("Add en: %v", err)
	}
	if _, err := reg.Add(ctx, AddParams{Prefix: "fr", Name: "French"}); err != nil {
		t.Fatalf("Add fr: %v", err)
	}
	if _, err := reg.Add(ctx, AddParams{Prefix: "de", Name: "German"}); err != nil {
		t.Fatalf("Add de: %v", err)
	}

	mirrors, err := reg.MirrorLanguages(ctx)
	if err != nil {
		t.Fatalf("MirrorLanguages: %v", err)
	}
	if len(mirrors) != 2 {
		t.Fatalf("got %d mirror languages, want 2", len(mirrors))
	}
	for _, l := range mirrors {
		if l.Prefix == "en" {
			t.Error("default language leaked into mirror set")
		}
	}
}

func TestResolveByURLSegment(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, AddParams{Prefix: "fr-CA", Path: "quebec", Name: "French (Canada)"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	lang, err := reg.ResolveByURLSegment(ctx, "quebec")
	if err != nil || lang == nil {
		t.Fatalf("exact segment: lang=%v err=%v", lang, err)
	}
	if lang.Prefix != "fr-CA" {
		t.Errorf("got prefix %q, want fr-CA", lang.Prefix)
	}

	// Normalized match catches case variants.
	lang, err = reg.ResolveByURLSegment(ctx, "Quebec")
	if err != nil || lang == nil {
		t.Fatalf("normalized segment: lang=%v err=%v", lang, err)
	}

	lang, err = reg.ResolveByURLSegment(ctx, "ontario")
	if err != nil {
		t.Fatalf("unknown segment: %v", err)
	}
	if lang != nil {
		t.Errorf("unknown segment resolved to %q", lang.Prefix)
	}
}

func TestResolveByPrefixIsExact(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, AddParams{Prefix: "fr", Name: "French"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	lang, err := reg.ResolveByPrefix(ctx, "fr")
	if err != nil || lang == nil {
		t.Fatalf("exact prefix: lang=%v err=%v", lang, err)
	}

	lang, err = reg.ResolveByPrefix(ctx, "FR")
	if err != nil {
		t.Fatalf("case-variant prefix: %v", err)
	}
	if lang != nil {
		t.Error("prefix lookup must be case-sensitive")
	}
}
