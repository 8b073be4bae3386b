package extract

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "github.com/ab22593k/gitai/errors"
)

var sourceFiles = map[string]string{
	"README.md":         "readme",
	"src/main.go":       "package main",
	"src/pkg/util.go":   "package pkg",
	"utils/strings.go":  "package utils",
	"docs/a.md":         "a",
	"docs/deep/b.md":    "b",
	".git/config":       "[core]",
	"vendor/.git":       "gitdir: ../.git/modules/vendor",
	"vendor/mod/mod.go": "package mod",
}

// writeTree creates files under root on the OS filesystem.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// readTree returns every regular file under root, relative and slash-separated.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mustFilters(t *testing.T, raw ...string) []Filter {
	t.Helper()
	f, err := ParseFilters(raw)
	require.NoError(t, err)
	return f
}

func TestExtract(t *testing.T) {
	src := filepath.Join(t.TempDir(), "checkout")
	writeTree(t, src, sourceFiles)
	e := New()
	ctx := context.Background()

	tests := []struct {
		name    string
		filters []string
		want    []string
	}{
		{
			name:    "directory keeps its path",
			filters: []string{"src/"},
			want:    []string{"src/main.go", "src/pkg/util.go"},
		},
		{
			name:    "file lands at the target root",
			filters: []string{"src/pkg/util.go"},
			want:    []string{"util.go"},
		},
		{
			name:    "glob keeps matched paths",
			filters: []string{"docs/**/*.md"},
			want:    []string{"docs/deep/b.md"},
		},
		{
			name:    "several filters",
			filters: []string{"utils", "README.md"},
			want:    []string{"README.md", "utils/strings.go"},
		},
		{
			name:    "empty filter list copies everything but git metadata",
			filters: nil,
			want: []string{
				"README.md", "docs/a.md", "docs/deep/b.md", "src/main.go",
				"src/pkg/util.go", "utils/strings.go", "vendor/mod/mod.go",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "out", "target")
			res, err := e.Extract(ctx, src, target, mustFilters(t, tt.filters...))
			require.NoError(t, err)

			got := readTree(t, target)
			assert.Equal(t, tt.want, keys(got))
			assert.Equal(t, len(tt.want), res.Files)
			assert.Equal(t, target, res.Target)

			// Nothing but the target is left next to it.
			entries, err := os.ReadDir(filepath.Dir(target))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestExtractReplacesTarget(t *testing.T) {
	src := filepath.Join(t.TempDir(), "checkout")
	writeTree(t, src, sourceFiles)
	target := filepath.Join(t.TempDir(), "target")
	writeTree(t, target, map[string]string{"stale.txt": "old", "src/main.go": "old"})

	e := New()
	_, err := e.Extract(context.Background(), src, target, mustFilters(t, "src"))
	require.NoError(t, err)

	got := readTree(t, target)
	assert.Equal(t, map[string]string{
		"src/main.go":     "package main",
		"src/pkg/util.go": "package pkg",
	}, got)

	// Re-running produces identical content.
	_, err = e.Extract(context.Background(), src, target, mustFilters(t, "src"))
	require.NoError(t, err)
	assert.Equal(t, got, readTree(t, target))
}

func TestExtractFilterMatchesNothing(t *testing.T) {
	src := filepath.Join(t.TempDir(), "checkout")
	writeTree(t, src, sourceFiles)
	target := filepath.Join(t.TempDir(), "target")
	writeTree(t, target, map[string]string{"keep.txt": "keep"})

	_, err := New().Extract(context.Background(), src, target, mustFilters(t, "src", "missing/"))
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeFilterMatchesNothing, platformerrors.GetCode(err))
	assert.Contains(t, err.Error(), "missing/")

	assert.Equal(t, map[string]string{"keep.txt": "keep"}, readTree(t, target))
}

func TestExtractSkipsSymlinks(t *testing.T) {
	src := filepath.Join(t.TempDir(), "checkout")
	writeTree(t, src, map[string]string{"src/a.go": "a"})
	require.NoError(t, os.Symlink("a.go", filepath.Join(src, "src", "link.go")))

	target := filepath.Join(t.TempDir(), "target")
	_, err := New().Extract(context.Background(), src, target, mustFilters(t, "src"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go"}, keys(readTree(t, target)))
}

func TestExtractUnwritableTarget(t *testing.T) {
	src := filepath.Join(t.TempDir(), "checkout")
	writeTree(t, src, sourceFiles)

	// The target's parent is a regular file, so nothing can be created there.
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o644))

	_, err := New().Extract(context.Background(), src, filepath.Join(parent, "target"), nil)
	assert.Equal(t, platformerrors.CodeExtractIO, platformerrors.GetCode(err))
}

func TestExtractCanceled(t *testing.T) {
	src := filepath.Join(t.TempDir(), "checkout")
	writeTree(t, src, sourceFiles)
	target := filepath.Join(t.TempDir(), "target")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, src, target, nil)
	require.Error(t, err)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildPlanInMemory(t *testing.T) {
	fs := memfs.New()
	for rel, content := range sourceFiles {
		require.NoError(t, util.WriteFile(fs, "/repo/"+rel, []byte(content), 0o644))
	}

	plan, err := BuildPlan(fs, "/repo", mustFilters(t, "src", "docs/a.md", "*.md"))
	require.NoError(t, err)

	var targets []string
	for _, f := range plan.Files {
		targets = append(targets, f.Target)
	}
	assert.Equal(t, []string{"README.md", "a.md", "src/main.go", "src/pkg/util.go"}, targets)
	assert.EqualValues(t, len("readme")+len("a")+len("package main")+len("package pkg"), plan.Bytes())

	_, err = BuildPlan(fs, "/missing", nil)
	assert.Equal(t, platformerrors.CodeCacheCorrupted, platformerrors.GetCode(err))
}
