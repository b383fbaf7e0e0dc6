// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose helpers shared across the mirror
// system, including language-prefix normalization.
package util

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// NormalizePrefix folds a language prefix or path into its canonical
// lookup form: accents transliterated to ASCII, everything but letters
// and digits stripped, lowercased. "FR-2" becomes "fr2".
func NormalizePrefix(s string) string {
	folded := unidecode.Unidecode(s)

	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		}
	}
	return sb.String()
}

// BasePrefix returns the substring before the first hyphen of a language
// prefix: "fr-CA" yields "fr". Returns the input unchanged when there is
// no hyphen.
func BasePrefix(s string) string {
	if idx := strings.Index(s, "-"); idx > 0 {
		return s[:idx]
	}
	return s
}

// TrimSegment trims hyphens and slashes from both ends of a raw prefix
// for use as a URL segment, preserving case.
func TrimSegment(s string) string {
	return strings.Trim(s, "-/")
}
