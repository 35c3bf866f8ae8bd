// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Snapshot is the value stored at a path at one point in time. Value holds
// the JSON-decoded tree (map[string]any, float64, string, bool, []any) or
// nil when nothing is stored there.
type Snapshot struct {
	Path  string
	Value any
}

// Exists reports whether anything is stored at the path.
func (s Snapshot) Exists() bool {
	return s.Value != nil
}

// Decode unmarshals the value into out. A missing value leaves out untouched.
func (s Snapshot) Decode(out any) error {
	if s.Value == nil {
		return nil
	}
	raw, err := json.Marshal(s.Value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.Path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	return nil
}

// Keys returns the sorted child keys when the value is an object.
func (s Snapshot) Keys() []string {
	m, ok := s.Value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Child returns the snapshot of a direct child key.
func (s Snapshot) Child(key string) Snapshot {
	child := Snapshot{Path: s.Path + "/" + key}
	if m, ok := s.Value.(map[string]any); ok {
		child.Value = m[key]
	}
	return child
}

// normalize converts any Go value into its JSON-decoded form so structs
// with json tags and plain maps are stored the same way.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten turns a normalized value into leaf rows keyed by absolute path.
// Objects recurse; everything else, arrays included, is one leaf. Null
// and empty objects produce no rows.
func flatten(path string, v any, out map[string]string) error {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range val {
			childPath, err := CleanPath(path + "/" + k)
			if err != nil {
				return err
			}
			if err := flatten(childPath, child, out); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return err
		}
		out[path] = string(raw)
		return nil
	}
}

// unflatten rebuilds the value at base from leaf rows under it.
func unflatten(base string, rows map[string]string) (any, error) {
	if raw, ok := rows[base]; ok && len(rows) == 1 {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}

	root := make(map[string]any)
	for p, raw := range rows {
		rel := strings.TrimPrefix(p, base+"/")
		if rel == p {
			// Leaf at base shadowed by descendants; descendants win.
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		segs := strings.Split(rel, "/")
		node := root
		for _, seg := range segs[:len(segs)-1] {
			next, ok := node[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[seg] = next
			}
			node = next
		}
		node[segs[len(segs)-1]] = v
	}
	return root, nil
}
