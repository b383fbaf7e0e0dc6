// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resolver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/ocms-mirror/internal/model"
)

// serveThrough runs one request through the middleware chain and returns
// the language and canonical flag the inner handler observed.
func serveThrough(t *testing.T, r *Resolver, path, acceptLanguage string) (*model.Language, bool, *httptest.ResponseRecorder) {
	t.Helper()

	var lang *model.Language
	var canonical bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		lang = GetLanguage(req)
		canonical = IsCanonical(req)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptLanguage != "" {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	w := httptest.NewRecorder()
	r.Middleware()(StripTrailingSlash(inner)).ServeHTTP(w, req)
	return lang, canonical, w
}

func TestMiddlewareBindsLanguageFromPathSegment(t *testing.T) {
	r := testResolver(t)

	// No route params exist before routing; the segment match alone must
	// carry prefixed paths.
	lang, canonical, _ := serveThrough(t, r, "/fr/about", "")
	if lang == nil || lang.Prefix != "fr" {
		t.Fatalf("bound language: %v, want fr", lang)
	}
	if !canonical {
		t.Error("language-bound request not marked canonical")
	}

	lang, canonical, _ = serveThrough(t, r, "/quebec/about", "")
	if lang == nil || lang.Prefix != "fr-CA" {
		t.Fatalf("path override: %v, want fr-CA", lang)
	}
	if !canonical {
		t.Error("override-bound request not marked canonical")
	}
}

func TestMiddlewareLeavesUnprefixedPathsUnbound(t *testing.T) {
	r := testResolver(t)

	lang, canonical, _ := serveThrough(t, r, "/about", "fr;q=1.0")
	if lang != nil {
		t.Errorf("unprefixed path bound %q", lang.Prefix)
	}
	if canonical {
		t.Error("unbound request marked canonical")
	}
}

func TestMiddlewareAcceptLanguageOnRoot(t *testing.T) {
	r := testResolver(t)

	lang, _, _ := serveThrough(t, r, "/", "fr-CH, fr;q=0.9")
	if lang == nil || lang.Prefix != "fr" {
		t.Errorf("root Accept-Language: %v, want fr", lang)
	}
}

func TestStripTrailingSlashSkipsCanonicalRequests(t *testing.T) {
	r := testResolver(t)

	// Language-bound URLs keep their shape.
	_, _, w := serveThrough(t, r, "/fr/about/", "")
	if w.Code != http.StatusOK {
		t.Errorf("canonical path redirected: %d", w.Code)
	}

	// Unbound URLs get the 301 strip.
	_, _, w = serveThrough(t, r, "/about/", "")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("got %d, want 301", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/about" {
		t.Errorf("Location = %q", loc)
	}
}
