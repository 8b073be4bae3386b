package config

import (
	"path/filepath"
	"strings"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire"
)

// Validate checks every entry and that names are unique.
func (f *File) Validate() error {
	names := make(map[string]int, len(f.Entries))
	for i, e := range f.Entries {
		if err := e.Validate(); err != nil {
			return platformerrors.WithContextMap(err, map[string]interface{}{"entry": i, "name": e.Name})
		}
		if e.Name == "" {
			continue
		}
		if prev, ok := names[e.Name]; ok {
			return platformerrors.WithContextMap(
				platformerrors.Newf(platformerrors.CodeInvalidConfig, "entry name %q is not unique", e.Name),
				map[string]interface{}{"entry": i, "other": prev},
			)
		}
		names[e.Name] = i
	}
	return nil
}

// Validate checks one entry. Request-level checks (URL syntax, commit,
// filters) run again when the request is planned.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.URL) == "" {
		return platformerrors.New(platformerrors.CodeInvalidConfig, "url is required")
	}
	if strings.TrimSpace(e.Target) == "" {
		return platformerrors.New(platformerrors.CodeInvalidConfig, "target path is required")
	}

	paths := append([]string{e.Target}, e.Filters...)
	for _, p := range paths {
		if err := checkPath(p, e.strict); err != nil {
			return err
		}
	}

	req := e.Request()
	req.Target = "."
	if err := req.Validate(); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid entry")
	}
	return nil
}

// checkPath rejects components that would leave the tree or touch git
// metadata. strict also rejects ".".
func checkPath(p string, strict bool) error {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		bad := part == ".." || part == ".git" || (strict && part == ".")
		if bad {
			return platformerrors.WithContext(
				platformerrors.New(platformerrors.CodeInvalidConfig, "paths must not contain '..' or '.git'"),
				"path", p,
			)
		}
	}
	return nil
}

// Request converts the entry to an engine request. The target is left as
// written.
func (e Entry) Request() wire.Request {
	return wire.Request{
		Name:     e.Name,
		URL:      e.URL,
		Branch:   e.Branch,
		Commit:   e.Commit,
		Target:   e.Target,
		Filters:  e.Filters,
		Strategy: cache.Strategy(e.Strategy),
	}
}

// Requests converts the selected entries to engine requests with targets
// resolved against root. With no names every entry is selected. A target
// outside root is rejected.
func (f *File) Requests(root string, names ...string) ([]wire.Request, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to resolve project root")
	}

	entries := f.Entries
	if len(names) > 0 {
		entries = nil
		for _, name := range names {
			e, ok := f.lookup(name)
			if !ok {
				return nil, platformerrors.WithContext(
					platformerrors.Newf(platformerrors.CodeNotFound, "no entry named %q", name),
					"path", f.Path,
				)
			}
			entries = append(entries, e)
		}
	}

	requests := make([]wire.Request, 0, len(entries))
	for _, e := range entries {
		req := e.Request()
		target, err := ResolveTarget(root, e.Target)
		if err != nil {
			return nil, err
		}
		req.Target = target
		requests = append(requests, req)
	}
	return requests, nil
}

func (f *File) lookup(name string) (Entry, bool) {
	for _, e := range f.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// ResolveTarget joins a relative target to root and rejects targets that
// are root itself or lie outside it.
func ResolveTarget(root, target string) (string, error) {
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", platformerrors.WithContextMap(
			platformerrors.New(platformerrors.CodeInvalidConfig, "target path must be inside the project root"),
			map[string]interface{}{"target": target, "root": root},
		)
	}
	return target, nil
}
