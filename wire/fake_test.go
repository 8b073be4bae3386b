package wire

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/extract"
	"github.com/ab22593k/gitai/wire/fetch"
)

const (
	commitOld = "1111111111111111111111111111111111111111"
	commitNew = "2222222222222222222222222222222222222222"
)

// fakeRepo is a remote with a branch tip and a commit history.
type fakeRepo struct {
	head    string
	commits map[string]map[string]string
}

// fakeFetcher writes fake remotes into the store without git.
type fakeFetcher struct {
	store *cache.Store
	delay time.Duration
	// afterFetch runs once the new checkout is recorded.
	afterFetch func(key cache.Key)

	mu       sync.Mutex
	repos    map[string]*fakeRepo
	calls    map[cache.Key]int
	active   map[cache.Key]int
	overlap  bool
	requests []fetch.Request

	total atomic.Int64
}

func newFakeFetcher(store *cache.Store) *fakeFetcher {
	return &fakeFetcher{
		store:  store,
		repos:  make(map[string]*fakeRepo),
		calls:  make(map[cache.Key]int),
		active: make(map[cache.Key]int),
	}
}

func (f *fakeFetcher) addRepo(url string, head string, commits map[string]map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[url] = &fakeRepo{head: head, commits: commits}
}

func (f *fakeFetcher) Fetch(_ context.Context, key cache.Key, req fetch.Request) (*cache.Entry, error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[key]++
	f.active[key]++
	if f.active[key] > 1 {
		f.overlap = true
	}
	f.requests = append(f.requests, req)
	repo := f.repos[req.URL]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active[key]--
		f.mu.Unlock()
	}()

	time.Sleep(f.delay)

	if repo == nil {
		return nil, platformerrors.New(platformerrors.CodeFetchFailed, "repository not found")
	}

	commit := repo.head
	if key.Pinned() {
		commit = ""
		for c := range repo.commits {
			if strings.HasPrefix(c, key.Commit) {
				commit = c
			}
		}
		if commit == "" {
			return nil, platformerrors.New(platformerrors.CodeCommitMismatch, "commit not found")
		}
	}

	dir := f.store.CheckoutPath(key)
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	for rel, content := range repo.commits[commit] {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}

	now := f.store.Now()
	err := f.store.Record(key, cache.Entry{
		RemoteURL:   req.URL,
		Path:        dir,
		Commit:      commit,
		State:       cache.StateAvailable,
		Coverage:    req.Coverage,
		LastFetched: now,
		LastAccess:  now,
	})
	if err != nil {
		return nil, err
	}
	if f.afterFetch != nil {
		f.afterFetch(key)
	}
	entry, _ := f.store.Lookup(key)
	return entry, nil
}

func (f *fakeFetcher) Verify(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", platformerrors.New(platformerrors.CodeCacheCorrupted, "empty checkout")
	}
	return "", nil
}

func (f *fakeFetcher) callsFor(key cache.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// fakeRemoteOps advertises a fixed branch tip per URL.
type fakeRemoteOps struct {
	tips map[string]string
}

func (r *fakeRemoteOps) ListRefs(_ context.Context, url string) ([]*plumbing.Reference, error) {
	tip, ok := r.tips[url]
	if !ok {
		return nil, platformerrors.New(platformerrors.CodeFetchFailed, "repository not found")
	}
	return []*plumbing.Reference{
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), plumbing.NewHash(tip)),
	}, nil
}

// harness wires an Engine over a temporary cache with a fake fetcher.
type harness struct {
	root    string
	store   *cache.Store
	fetcher *fakeFetcher
	engine  *Engine
}

const (
	repoURL  = "https://example.com/org/repo.git"
	otherURL = "https://example.com/org/other.git"
)

var repoFiles = map[string]string{
	"README.md":        "readme",
	"src/main.go":      "package main",
	"src/lib/lib.go":   "package lib",
	"lib/extra.go":     "package extra",
	"utils/strings.go": "package utils",
	"docs/guide.md":    "guide",
}

func newHarness(t *testing.T, workers int, storeOpts ...cache.StoreOption) *harness {
	t.Helper()
	root := t.TempDir()
	locks := cache.NewLockRegistry()
	storeOpts = append([]cache.StoreOption{cache.WithLockRegistry(locks)}, storeOpts...)
	store, err := cache.NewStore(filepath.Join(root, "cache"), storeOpts...)
	require.NoError(t, err)

	f := newFakeFetcher(store)
	f.addRepo(repoURL, commitNew, map[string]map[string]string{
		commitOld: {"src/main.go": "package old"},
		commitNew: repoFiles,
	})
	f.addRepo(otherURL, commitOld, map[string]map[string]string{
		commitOld: {"pkg/a.go": "package pkg"},
	})

	engine := New(store, locks, f, extract.New(), WithWorkers(workers))
	return &harness{root: root, store: store, fetcher: f, engine: engine}
}

func (h *harness) target(name string) string {
	return filepath.Join(h.root, "project", name)
}

// tree returns the relative file paths under dir.
func tree(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(dir, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}
