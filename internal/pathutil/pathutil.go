// Package pathutil normalizes and compares the slash-separated project paths
// used by the documentation service's file records, tree nodes and exclusions.
package pathutil

import (
	"sort"
	"strings"
)

// Normalize converts p to the backend's canonical form: forward slashes, no
// leading "./" or "/", no repeated or trailing separators.
func Normalize(p string) string {
	return strings.Join(Parts(p), "/")
}

// Parts splits p into its segments, dropping empty and "." segments.
func Parts(p string) []string {
	raw := strings.Split(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"), "/")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Depth is the number of segments in p.
func Depth(p string) int {
	return len(Parts(p))
}

// Base returns the last segment of p.
func Base(p string) string {
	parts := Parts(p)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Dir returns p without its last segment.
func Dir(p string) string {
	parts := Parts(p)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], "/")
}

// Join joins the non-empty segments and normalizes the result.
func Join(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			continue
		}
		kept = append(kept, s)
	}
	return Normalize(strings.Join(kept, "/"))
}

// Ext returns the lower-cased extension of p without the dot. Dotfiles such
// as ".env" have no extension.
func Ext(p string) string {
	base := Base(p)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// IsPython reports whether p names a .py file.
func IsPython(p string) bool {
	return Ext(p) == "py"
}

// Equal reports whether a and b are the same path after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// LikeEqual matches a and b when they are equal or when one is a
// segment-aligned suffix of the other ("src/a/b.py" ~ "a/b.py"). Empty paths
// never match.
func LikeEqual(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.HasSuffix(na, "/"+nb) || strings.HasSuffix(nb, "/"+na)
}

// IsSubpath reports whether child equals parent or lies beneath it. The
// comparison is on whole segments, so "src/app" is not under "src/ap".
func IsSubpath(child, parent string) bool {
	c, p := Normalize(child), Normalize(parent)
	if c == "" || p == "" {
		return false
	}
	return c == p || strings.HasPrefix(c, p+"/")
}

// NormalizeAll normalizes each entry and drops the empty ones.
func NormalizeAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// SortedEqual compares two path lists as unordered multisets of normalized
// paths.
func SortedEqual(a, b []string) bool {
	na, nb := NormalizeAll(a), NormalizeAll(b)
	if len(na) != len(nb) {
		return false
	}
	sort.Strings(na)
	sort.Strings(nb)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
