package cache

import (
	"strings"
	"testing"

	platformerrors "github.com/ab22593k/gitai/errors"
)

func TestNewKey(t *testing.T) {
	t.Run("equivalent remotes share a key", func(t *testing.T) {
		a, err := NewKey("https://github.com/test/repo.git", "main", "")
		if err != nil {
			t.Fatal(err)
		}
		b, err := NewKey("git@GITHUB.com:test/repo", "main", "")
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("keys differ: %s vs %s", a, b)
		}
	})

	t.Run("branch and commit separate keys", func(t *testing.T) {
		main, _ := NewKey("https://github.com/test/repo", "main", "")
		dev, _ := NewKey("https://github.com/test/repo", "dev", "")
		pinned, _ := NewKey("https://github.com/test/repo", "main", "ABCDEF12")

		if main == dev || main == pinned {
			t.Errorf("expected distinct keys, got %s %s %s", main, dev, pinned)
		}
		if pinned.Commit != "abcdef12" {
			t.Errorf("commit = %q, want lowercased", pinned.Commit)
		}
	})

	t.Run("empty branch is the default branch", func(t *testing.T) {
		k, err := NewKey("https://github.com/test/repo", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if k.Branch != DefaultBranch {
			t.Errorf("branch = %q, want %q", k.Branch, DefaultBranch)
		}
		if k.Ref() != DefaultBranch {
			t.Errorf("ref = %q", k.Ref())
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			url, branch, commit string
			code                platformerrors.ErrorCode
		}{
			{"ftp://x/y", "main", "", platformerrors.CodeInvalidURL},
			{"https://x/y", "..", "", platformerrors.CodeInvalidInput},
			{"https://x/y", "bad branch", "", platformerrors.CodeInvalidInput},
			{"https://x/y", "main", "xyz123", platformerrors.CodeInvalidInput},
			{"https://x/y", "main", "abc", platformerrors.CodeInvalidInput},
		}
		for _, tt := range tests {
			_, err := NewKey(tt.url, tt.branch, tt.commit)
			if code := platformerrors.GetCode(err); code != tt.code {
				t.Errorf("NewKey(%q, %q, %q) code = %s, want %s", tt.url, tt.branch, tt.commit, code, tt.code)
			}
		}
	})
}

func TestKeyRendering(t *testing.T) {
	k, err := NewKey("https://github.com/test/repo.git", "feature/x", "0123abcd")
	if err != nil {
		t.Fatal(err)
	}

	if got, want := k.String(), "github.com/test/repo#feature/x@0123abcd"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := k.Path(), "repo-"+k.Hash(); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got := mustKey(t, "https://github.com/Test/My+Repo.git", "main", "").Path(); !strings.HasPrefix(got, "my_repo-") || strings.Contains(got, "/") {
		t.Errorf("Path() = %q, want a single sanitized component", got)
	}
	if k.Ref() != "0123abcd" || !k.Pinned() {
		t.Errorf("pinned key should fetch its commit, got ref %q", k.Ref())
	}

	h := k.Hash()
	if len(h) != 16 || strings.Trim(h, "0123456789abcdef") != "" {
		t.Errorf("Hash() = %q, want 16 hex chars", h)
	}
	other, _ := NewKey("https://github.com/test/repo.git", "feature/x", "")
	if other.Hash() == h {
		t.Error("distinct keys should hash differently")
	}
}
