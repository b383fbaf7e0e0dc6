// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package resolver determines the active language for an inbound
// request from its path and any signals already bound to it.
package resolver

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/registry"
)

// systemPrefixes are path prefixes that never carry language semantics:
// administrative surfaces, APIs and static assets pass through
// unresolved.
var systemPrefixes = []string{
	"/admin",
	"/api",
	"/static",
	"/uploads",
	"/healthz",
}

// feedSuffixes mark feed endpoints, which keep the default rendering
// regardless of path tokens.
var feedSuffixes = []string{"/feed", "/rss", "/atom"}

// Request carries the explicit per-request state the resolver consults.
// There is no ambient "current request" — callers pass everything in.
type Request struct {
	// Path is the inbound request path.
	Path string
	// RouteToken is a language token already parsed by the routing
	// layer, when one exists. Highest precedence.
	RouteToken string
	// EntityLanguage is the language tag of an entity already bound to
	// the request, when one exists. Second precedence.
	EntityLanguage string
	// AcceptLanguage is the raw Accept-Language header, consulted only
	// for the site root where no path token can exist.
	AcceptLanguage string
}

// Resolver resolves the active language for a request.
type Resolver struct {
	registry *registry.Registry
}

// New creates a Resolver over the language registry.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// ResolveForRequest determines the active language, or nil for
// default/original content. Precedence:
//
//  1. a routing token already parsed for this request
//  2. the language tag of an entity already bound to the request
//  3. longest-prefix match of the path against registered URL segments
//  4. Accept-Language, for the site root only
//
// File paths, system prefixes and feed endpoints never resolve.
func (r *Resolver) ResolveForRequest(ctx context.Context, req Request) (*model.Language, error) {
	if req.RouteToken != "" {
		lang, err := r.registry.ResolveByURLSegment(ctx, req.RouteToken)
		if err != nil || lang != nil {
			return lang, err
		}
	}

	if req.EntityLanguage != "" {
		lang, err := r.registry.ResolveByPrefix(ctx, req.EntityLanguage)
		if err != nil || lang != nil {
			return lang, err
		}
	}

	if skipPath(req.Path) {
		return nil, nil
	}

	if lang, err := r.matchPathSegment(ctx, req.Path); err != nil || lang != nil {
		return lang, err
	}

	if isRoot(req.Path) && req.AcceptLanguage != "" {
		return r.matchAcceptLanguage(ctx, req.AcceptLanguage)
	}

	return nil, nil
}

// matchPathSegment finds the registered language whose URL segment is
// the longest prefix of the request path.
func (r *Resolver) matchPathSegment(ctx context.Context, path string) (*model.Language, error) {
	langs, err := r.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimPrefix(path, "/")
	var best *model.Language
	bestLen := 0
	for i := range langs {
		segment := registry.URLSegment(langs[i])
		if segment == "" {
			continue
		}
		if trimmed == segment || strings.HasPrefix(trimmed, segment+"/") {
			if len(segment) > bestLen {
				best = &langs[i]
				bestLen = len(segment)
			}
		}
	}
	return best, nil
}

// matchAcceptLanguage matches the Accept-Language header against the
// registry using a language matcher. Prefixes that do not parse as BCP
// 47 tags are skipped.
func (r *Resolver) matchAcceptLanguage(ctx context.Context, header string) (*model.Language, error) {
	langs, err := r.registry.List(ctx)
	if err != nil || len(langs) == 0 {
		return nil, err
	}

	tags := make([]language.Tag, 0, len(langs))
	indexes := make([]int, 0, len(langs))
	for i := range langs {
		tag, err := language.Parse(langs[i].Prefix)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		indexes = append(indexes, i)
	}
	if len(tags) == 0 {
		return nil, nil
	}

	wanted, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(wanted) == 0 {
		return nil, nil
	}

	_, idx, conf := language.NewMatcher(tags).Match(wanted...)
	if conf == language.No {
		return nil, nil
	}
	return &langs[indexes[idx]], nil
}

// skipPath reports whether a path can never carry language semantics.
func skipPath(path string) bool {
	for _, prefix := range systemPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	for _, suffix := range feedSuffixes {
		if strings.HasSuffix(strings.TrimSuffix(path, "/"), suffix) {
			return true
		}
	}
	// Paths with a file extension resolve to files on disk.
	last := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		last = path[idx+1:]
	}
	return strings.Contains(last, ".")
}

func isRoot(path string) bool {
	return path == "/" || path == ""
}
