// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package fieldtree

import (
	"encoding/json"
	"fmt"
)

// refKey marks an entity reference in the JSON encoding. A bare
// reference is {"$entity": 42}; a hydrated one is an object under the
// same key that carries at least an "id" member.
const refKey = "$entity"

// FromJSON decodes a JSON document into a value tree.
func FromJSON(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding field tree: %w", err)
	}
	return fromAny(raw)
}

func fromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case map[string]any:
		if ref, ok := v[refKey]; ok && len(v) == 1 {
			return refFromAny(ref)
		}
		m := make(Map, len(v))
		for key, child := range v {
			cv, err := fromAny(child)
			if err != nil {
				return nil, err
			}
			m[key] = cv
		}
		return m, nil
	case []any:
		l := make(List, 0, len(v))
		for _, child := range v {
			cv, err := fromAny(child)
			if err != nil {
				return nil, err
			}
			l = append(l, cv)
		}
		return l, nil
	default:
		return Scalar{V: v}, nil
	}
}

func refFromAny(ref any) (Value, error) {
	switch r := ref.(type) {
	case float64:
		return EntityRef{ID: int64(r)}, nil
	case map[string]any:
		id, ok := r["id"].(float64)
		if !ok {
			return nil, fmt.Errorf("hydrated entity reference missing numeric id")
		}
		return EntityRef{ID: int64(id), Hydrated: true}, nil
	default:
		return nil, fmt.Errorf("entity reference must be a number or an object, got %T", ref)
	}
}

// ToJSON encodes a value tree back into its JSON document form.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toAny(v))
}

func toAny(v Value) any {
	switch n := v.(type) {
	case Scalar:
		return n.V
	case List:
		out := make([]any, 0, len(n))
		for _, child := range n {
			out = append(out, toAny(child))
		}
		return out
	case Map:
		out := make(map[string]any, len(n))
		for key, child := range n {
			out[key] = toAny(child)
		}
		return out
	case EntityRef:
		if n.Hydrated {
			return map[string]any{refKey: map[string]any{"id": n.ID}}
		}
		return map[string]any{refKey: n.ID}
	default:
		return nil
	}
}
