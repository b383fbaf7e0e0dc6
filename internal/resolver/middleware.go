// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resolver

import (
	"context"
	"net/http"

	"github.com/olegiv/ocms-mirror/internal/model"
)

// ContextKey is the type for context keys set by this package.
type ContextKey string

// Context keys for language data.
const (
	ContextKeyLanguage  ContextKey = "mirror_language"
	ContextKeyCanonical ContextKey = "mirror_canonical"
)

// Middleware detects the active language for each request and binds it
// to the request context. Once a language token is bound the request is
// also marked canonical, so downstream redirect logic must not strip or
// rewrite the detected segment.
//
// The middleware runs before routing, so language tokens are read from
// the URL path itself; the RouteToken signal of ResolveForRequest is for
// callers that already hold a matched token.
func (r *Resolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			lang, err := r.ResolveForRequest(ctx, Request{
				Path:           req.URL.Path,
				AcceptLanguage: req.Header.Get("Accept-Language"),
			})
			if err != nil || lang == nil {
				next.ServeHTTP(w, req)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyLanguage, *lang)
			ctx = context.WithValue(ctx, ContextKeyCanonical, true)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// GetLanguage retrieves the active language from the request context.
// Returns nil for default/original content.
func GetLanguage(req *http.Request) *model.Language {
	lang, ok := req.Context().Value(ContextKeyLanguage).(model.Language)
	if !ok {
		return nil
	}
	return &lang
}

// IsCanonical reports whether a language token has been bound to the
// request, making it already-canonical for redirect purposes.
func IsCanonical(req *http.Request) bool {
	canonical, ok := req.Context().Value(ContextKeyCanonical).(bool)
	return ok && canonical
}

// StripTrailingSlash redirects URLs with trailing slashes to their
// non-trailing equivalents (HTTP 301), excluding the root path and any
// request already carrying a bound language token.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != "/" && len(path) > 1 && path[len(path)-1] == '/' && !IsCanonical(r) {
			newURL := path[:len(path)-1]
			if r.URL.RawQuery != "" {
				newURL += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, newURL, http.StatusMovedPermanently)
			return
		}
		next.ServeHTTP(w, r)
	})
}
