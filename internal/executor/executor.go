// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package executor turns a claimed queue job into a translated content
// entity via an AI chat provider.
package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/ocms-mirror/internal/model"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// Service translates entity fields through a ChatProvider and writes
// the resulting mirror entity. NEW and OLD jobs create the mirror; EDIT
// jobs update the fields named on the job in the existing mirror.
//
// Translate is idempotent per job: redoing it after a staleness reset
// overwrites the same fields with fresh output rather than duplicating
// content.
type Service struct {
	queries  *store.Queries
	provider ChatProvider
	model    string
	bodyHTML *bluemonday.Policy
	plain    *bluemonday.Policy
}

// New creates a Service using the given provider and chat model.
func New(q *store.Queries, provider ChatProvider, chatModel string) *Service {
	return &Service{
		queries:  q,
		provider: provider,
		model:    chatModel,
		bodyHTML: bluemonday.UGCPolicy(),
		plain:    bluemonday.StrictPolicy(),
	}
}

// Translate implements pipeline.Executor.
func (s *Service) Translate(ctx context.Context, job model.QueueJob, parent model.Entity) (int64, error) {
	langName := s.languageName(ctx, job.Language)

	switch job.Type {
	case model.JobTypeEdit:
		return s.updateExisting(ctx, job, parent, langName)
	default:
		return s.createMirror(ctx, job, parent, langName)
	}
}

// createMirror translates all watched fields and inserts the mirror
// entity. If a mirror already exists for the pair (a redo after a
// staleness reset), its fields are overwritten instead.
func (s *Service) createMirror(ctx context.Context, job model.QueueJob, parent model.Entity, langName string) (int64, error) {
	translated, err := s.translateFields(ctx, map[string]string{
		"title":   parent.Title,
		"body":    parent.Body,
		"excerpt": parent.Excerpt,
	}, langName)
	if err != nil {
		return 0, err
	}

	now := time.Now()

	existing, err := s.queries.GetTranslatedEntity(ctx, parent.ID, job.Language)
	if err == nil {
		if err := s.writeFields(ctx, existing, translated, now); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	mirror, err := s.queries.CreateEntity(ctx, store.CreateEntityParams{
		Kind:        parent.Kind,
		Title:       s.plain.Sanitize(translated["title"]),
		Body:        s.bodyHTML.Sanitize(translated["body"]),
		Excerpt:     s.plain.Sanitize(translated["excerpt"]),
		Status:      model.EntityStatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: sql.NullTime{Time: now, Valid: true},
	})
	if err != nil {
		return 0, fmt.Errorf("creating mirror entity: %w", err)
	}
	return mirror.ID, nil
}

// updateExisting re-translates the edited fields into the existing
// mirror entity.
func (s *Service) updateExisting(ctx context.Context, job model.QueueJob, parent model.Entity, langName string) (int64, error) {
	mirrorID, err := s.queries.GetTranslationPointer(ctx, parent.ID, job.Language)
	if err != nil {
		return 0, fmt.Errorf("no completed translation to update for entity %d language %s", parent.ID, job.Language)
	}
	mirror, err := s.queries.GetEntity(ctx, mirrorID)
	if err != nil {
		return 0, fmt.Errorf("loading mirror entity %d: %w", mirrorID, err)
	}

	fields := make(map[string]string)
	edited := job.EditedFieldList()
	if len(edited) == 0 {
		edited = model.WatchedFields
	}
	for _, field := range edited {
		switch field {
		case "title":
			fields["title"] = parent.Title
		case "body":
			fields["body"] = parent.Body
		case "excerpt":
			fields["excerpt"] = parent.Excerpt
		}
	}
	if len(fields) == 0 {
		return mirror.ID, nil
	}

	translated, err := s.translateFields(ctx, fields, langName)
	if err != nil {
		return 0, err
	}
	if err := s.writeFields(ctx, mirror, translated, time.Now()); err != nil {
		return 0, err
	}
	return mirror.ID, nil
}

// writeFields merges translated values over a mirror's current fields
// and persists them, sanitized.
func (s *Service) writeFields(ctx context.Context, mirror model.Entity, translated map[string]string, now time.Time) error {
	title, body, excerpt := mirror.Title, mirror.Body, mirror.Excerpt
	if v, ok := translated["title"]; ok {
		title = s.plain.Sanitize(v)
	}
	if v, ok := translated["body"]; ok {
		body = s.bodyHTML.Sanitize(v)
	}
	if v, ok := translated["excerpt"]; ok {
		excerpt = s.plain.Sanitize(v)
	}

	return s.queries.UpdateEntityFields(ctx, store.UpdateEntityFieldsParams{
		ID:        mirror.ID,
		Title:     title,
		Body:      body,
		Excerpt:   excerpt,
		UpdatedAt: now,
	})
}

// translateFields sends the fields to the provider as one JSON document
// and expects a JSON document of the same shape back.
func (s *Service) translateFields(ctx context.Context, fields map[string]string, langName string) (map[string]string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding fields: %w", err)
	}

	resp, err := s.provider.ChatCompletion(ctx, ChatRequest{
		Model: s.model,
		Messages: []ChatMessage{
			{
				Role: "system",
				Content: "You are a translation engine for CMS content. " +
					"Translate every value of the JSON object the user sends into " + langName + ". " +
					"Preserve HTML markup and placeholders. Reply with only the translated JSON object.",
			},
			{Role: "user", Content: string(payload)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}

	var translated map[string]string
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &translated); err != nil {
		return nil, fmt.Errorf("provider returned malformed JSON: %w", err)
	}
	return translated, nil
}

// languageName returns the display name for a language prefix, falling
// back to the prefix itself.
func (s *Service) languageName(ctx context.Context, prefix string) string {
	lang, err := s.queries.GetLanguageByPrefix(ctx, prefix)
	if err != nil || lang.Name == "" {
		return prefix
	}
	return lang.Name
}

// stripCodeFence removes a wrapping markdown code fence from a provider
// reply, if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
