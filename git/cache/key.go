package cache

import (
	"fmt"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// DefaultBranch names the remote's default branch in a Key.
const DefaultBranch = "HEAD"

// Key identifies one cached checkout: a normalized repository URL, a branch
// and an optional pinned commit. Requests that differ only by target or
// filters share a Key.
type Key struct {
	URL    string `json:"url"`
	Branch string `json:"branch"`
	Commit string `json:"commit,omitempty"`
}

// NewKey derives the Key for a repository URL, branch and optional commit.
// An empty branch selects the remote's default branch.
func NewKey(rawURL, branch, commit string) (Key, error) {
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return Key{}, err
	}

	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = DefaultBranch
	}
	if branch == "." || branch == ".." || strings.ContainsAny(branch, " \t\n~^:?*[\\") {
		return Key{}, platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "invalid branch name"),
			"branch", branch,
		)
	}

	commit = strings.ToLower(strings.TrimSpace(commit))
	if commit != "" && !IsHexCommit(commit) {
		return Key{}, platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "commit must be a hexadecimal hash"),
			"commit", commit,
		)
	}

	return Key{URL: normalized, Branch: branch, Commit: commit}, nil
}

// IsHexCommit reports whether s looks like a full or abbreviated commit hash.
func IsHexCommit(s string) bool {
	if len(s) < 4 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Pinned reports whether the key names a specific commit.
func (k Key) Pinned() bool {
	return k.Commit != ""
}

// Ref returns what should be fetched for the key: the commit when pinned,
// otherwise the branch.
func (k Key) Ref() string {
	if k.Pinned() {
		return k.Commit
	}
	return k.Branch
}

// String renders the key as url#branch[@commit].
func (k Key) String() string {
	s := k.URL + "#" + k.Branch
	if k.Pinned() {
		s += "@" + k.Commit
	}
	return s
}

// Path returns the cache-relative directory of the key. It is a single
// component, the repository base name followed by Hash, so no key's
// directory can sit inside another's.
func (k Key) Path() string {
	return slug(path.Base(k.URL)) + "-" + k.Hash()
}

// slug keeps [a-z0-9._-] and replaces everything else with '_'.
func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, s)
}

// Hash returns a short stable digest of the key, used for lock file names.
func (k Key) Hash() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(k.String()))
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k == Key{}
}
