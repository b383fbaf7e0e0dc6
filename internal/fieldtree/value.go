// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fieldtree models rich field values as a closed set of tagged
// variants and rewrites every entity reference inside them to its
// translated counterpart.
package fieldtree

// Value is one node of a rich field value tree. The variants are
// Scalar, List, Map and EntityRef; the translator pattern-matches on
// them exhaustively.
type Value interface {
	isValue()
}

// Scalar is an opaque leaf value: text, numbers, anything that carries
// no entity reference. The translator returns scalars unchanged.
type Scalar struct {
	V any
}

func (Scalar) isValue() {}

// List is a positional container of values.
type List []Value

func (List) isValue() {}

// Map is a keyed container of values.
type Map map[string]Value

func (Map) isValue() {}

// EntityRef references a content entity, either as a bare ID or as a
// hydrated object that carries the ID.
type EntityRef struct {
	ID       int64
	Hydrated bool
}

func (EntityRef) isValue() {}
