package extract

import (
	"strings"

	"github.com/gobwas/glob"

	platformerrors "github.com/ab22593k/gitai/errors"
)

const globMeta = "*?[{"

// Filter selects files of a checkout. A filter is either a path prefix
// (a file or a directory relative to the repository root) or a glob.
type Filter struct {
	// Raw is the filter as written.
	Raw string

	// Path is the normalized form: no leading slash, no "." or ".." components.
	Path string

	pattern glob.Glob
}

// ParseFilters normalizes and compiles filters. Duplicates after
// normalization are dropped.
func ParseFilters(raw []string) ([]Filter, error) {
	seen := make(map[string]bool, len(raw))
	filters := make([]Filter, 0, len(raw))

	for _, r := range raw {
		f, err := ParseFilter(r)
		if err != nil {
			return nil, err
		}
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		filters = append(filters, f)
	}
	return filters, nil
}

// ParseFilter normalizes and compiles a single filter.
func ParseFilter(raw string) (Filter, error) {
	f := Filter{Raw: raw, Path: NormalizePath(raw)}
	for _, part := range strings.Split(f.Path, "/") {
		if part == ".git" {
			return Filter{}, platformerrors.WithContext(
				platformerrors.New(platformerrors.CodeInvalidInput, "filter must not reference .git"),
				"filter", raw,
			)
		}
	}

	if strings.ContainsAny(f.Path, globMeta) {
		g, err := glob.Compile(f.Path, '/')
		if err != nil {
			return Filter{}, platformerrors.WithContext(
				platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "invalid filter pattern"),
				"filter", raw,
			)
		}
		f.pattern = g
	}
	return f, nil
}

// IsGlob reports whether the filter is a pattern rather than a path.
func (f Filter) IsGlob() bool {
	return f.pattern != nil
}

// Match reports whether a glob filter matches a slash-separated relative path.
func (f Filter) Match(rel string) bool {
	return f.pattern != nil && f.pattern.Match(rel)
}

func (f Filter) String() string {
	return f.Raw
}

// Paths returns the plain-path filters, for sparse checkouts. ok is false
// when any filter is a glob or when the list selects the whole tree, in
// which case the checkout needs every path.
func Paths(filters []Filter) (paths []string, ok bool) {
	if len(filters) == 0 {
		return nil, false
	}
	for _, f := range filters {
		if f.IsGlob() || f.Path == "" {
			return nil, false
		}
		paths = append(paths, f.Path)
	}
	return paths, true
}

// NormalizePath resolves "." and ".." components lexically and strips
// leading slashes, so the result can never leave the repository root.
func NormalizePath(p string) string {
	var stack []string
	for _, part := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		switch part {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	return strings.Join(stack, "/")
}
