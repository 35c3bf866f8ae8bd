// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"fmt"
	"sort"
	"strings"
)

// CleanPath trims surrounding slashes and validates every segment.
// Segments must be non-empty printable ASCII without . # $ [ ].
func CleanPath(path string) (string, error) {
	p := strings.Trim(path, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			if c < 0x20 || c >= 0x7f || strings.IndexByte(".#$[]", c) >= 0 {
				return "", fmt.Errorf("%w: bad character %q in %q", ErrInvalidPath, c, path)
			}
		}
	}
	return p, nil
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ancestors returns the proper ancestors of a clean path, root first.
func ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// overlaps reports whether a and b are equal or one contains the other.
func overlaps(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// lockOrder returns every path and its ancestors, sorted and deduplicated.
// A prefix always sorts before its extensions, so writers take row locks
// root to leaf.
func lockOrder(paths []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range paths {
		for _, a := range append(ancestors(p), p) {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sort.Strings(out)
	return out
}
