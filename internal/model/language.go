// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Language represents a configured mirror language.
//
// Prefix is the stable internal key used in stored translation pointers
// and entity language tags. Path is the user-facing URL segment; when
// empty the segment is derived from the prefix.
type Language struct {
	ID          int64     `json:"id"`
	Prefix      string    `json:"prefix"`      // storage/lookup key: fr, fr-CA, de
	Path        string    `json:"path"`        // URL segment override, may be empty
	Name        string    `json:"name"`        // display name: French, German
	Description string    `json:"description"` // free-form operator note
	IsDefault   bool      `json:"is_default"`  // the original-content language
	Position    int       `json:"position"`    // sort order in the registry
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommonLanguages provides a list of commonly used languages for selection UI.
var CommonLanguages = []struct {
	Prefix string
	Name   string
}{
	{"en", "English"},
	{"ru", "Russian"},
	{"de", "German"},
	{"fr", "French"},
	{"es", "Spanish"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"uk", "Ukrainian"},
	{"zh", "Chinese"},
	{"ja", "Japanese"},
	{"tr", "Turkish"},
}
