// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"fr", "fr"},
		{"FR", "fr"},
		{"fr-CA", "frca"},
		{"FR-2", "fr2"},
		{"français", "francais"},
		{"pt_BR", "ptbr"},
		{" de ", "de"},
		{"", ""},
		{"--", ""},
	}

	for _, tt := range tests {
		if got := NormalizePrefix(tt.input); got != tt.want {
			t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBasePrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"fr-CA", "fr"},
		{"fr", "fr"},
		{"zh-Hant-TW", "zh"},
		{"-leading", "-leading"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := BasePrefix(tt.input); got != tt.want {
			t.Errorf("BasePrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTrimSegment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/fr/", "fr"},
		{"-fr-", "fr"},
		{"fr-CA", "fr-CA"},
		{"FR", "FR"},
	}

	for _, tt := range tests {
		if got := TrimSegment(tt.input); got != tt.want {
			t.Errorf("TrimSegment(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
