package wire

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/extract"
)

func mustKey(t *testing.T, url, branch, commit string) cache.Key {
	t.Helper()
	k, err := cache.NewKey(url, branch, commit)
	require.NoError(t, err)
	return k
}

func TestSyncFetchesOncePerKey(t *testing.T) {
	for _, workers := range []int{1, 4} {
		h := newHarness(t, workers)
		var requests []Request
		for i, filter := range []string{"src/", "utils/", "lib", "README.md", "docs"} {
			requests = append(requests, Request{
				URL:     repoURL,
				Branch:  "main",
				Target:  h.target(string(rune('a' + i))),
				Filters: []string{filter},
			})
		}
		// Equivalent spellings of the same remote.
		requests[3].URL = "https://EXAMPLE.com/org/repo/"
		requests[4].URL = "https://example.com:443/org/repo"

		report, err := h.engine.Sync(context.Background(), requests)
		require.NoError(t, err)
		assert.Empty(t, report.Failed())
		assert.Equal(t, 1, report.Fetches)
		assert.Equal(t, 1, h.fetcher.callsFor(mustKey(t, repoURL, "main", "")))

		ids := make(map[string]bool)
		for _, res := range report.Results {
			assert.True(t, res.Fetched)
			assert.Equal(t, commitNew, res.Commit)
			ids[res.OperationID] = true
		}
		assert.Len(t, ids, len(requests))
	}
}

func TestSyncSplitsByFilter(t *testing.T) {
	h := newHarness(t, 4)
	a, b := h.target("A"), h.target("B")

	report, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: a, Filters: []string{"src/"}},
		{URL: repoURL, Branch: "main", Target: b, Filters: []string{"utils/"}},
	})
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	assert.Equal(t, 1, report.Fetches)

	assert.Equal(t, []string{"src/lib/lib.go", "src/main.go"}, tree(t, a))
	assert.Equal(t, []string{"utils/strings.go"}, tree(t, b))
	assert.Equal(t, 2, report.Results[0].Files)
}

func TestSyncEmptyFiltersCopyEverything(t *testing.T) {
	h := newHarness(t, 2)
	report, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: h.target("all")},
	})
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	assert.Len(t, tree(t, h.target("all")), len(repoFiles))
	assert.Equal(t, cache.StrategyShallowNoSparse, h.fetcher.requests[0].Coverage.Strategy)
}

func TestSyncDifferentBranchesAreIndependent(t *testing.T) {
	h := newHarness(t, 4)
	report, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: h.target("main"), Filters: []string{"src"}},
		{URL: repoURL, Branch: "dev", Target: h.target("dev"), Filters: []string{"src"}},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Failed())
	assert.Equal(t, 2, report.Fetches)
	assert.NotEqual(t, report.Results[0].Key, report.Results[1].Key)
}

func TestSyncFetchFailureIsolated(t *testing.T) {
	for _, workers := range []int{1, 4} {
		h := newHarness(t, workers)
		missing := "https://example.com/org/missing.git"

		report, err := h.engine.Sync(context.Background(), []Request{
			{URL: missing, Target: h.target("m1"), Filters: []string{"src"}},
			{URL: repoURL, Branch: "main", Target: h.target("ok"), Filters: []string{"src"}},
			{URL: missing, Target: h.target("m2"), Filters: []string{"lib"}},
			{URL: otherURL, Target: h.target("other")},
		})
		require.NoError(t, err)

		failed := report.Failed()
		require.Len(t, failed, 2)
		for _, res := range failed {
			assert.Equal(t, platformerrors.CodeFetchFailed, platformerrors.GetCode(res.Err))
			assert.Equal(t, missing, res.Request.URL)
			_, statErr := os.Stat(res.Request.Target)
			assert.True(t, os.IsNotExist(statErr))
		}
		assert.True(t, report.Results[1].OK())
		assert.True(t, report.Results[3].OK())
		assert.Equal(t, []string{"pkg/a.go"}, tree(t, h.target("other")))
	}
}

func TestSyncFilterMatchesNothingIsolated(t *testing.T) {
	h := newHarness(t, 4)
	report, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: h.target("bad"), Filters: []string{"src", "nope/"}},
		{URL: repoURL, Branch: "main", Target: h.target("good"), Filters: []string{"utils"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetches)

	require.Len(t, report.Failed(), 1)
	assert.Equal(t, platformerrors.CodeFilterMatchesNothing, platformerrors.GetCode(report.Results[0].Err))
	assert.True(t, report.Results[1].OK())
	assert.Equal(t, []string{"utils/strings.go"}, tree(t, h.target("good")))
}

func TestSyncCheckoutSurvivesConcurrentCleanup(t *testing.T) {
	for _, workers := range []int{1, 4} {
		h := newHarness(t, workers)
		var cleared [][]cache.Key
		h.fetcher.afterFetch = func(cache.Key) {
			removed, err := h.store.Clear()
			require.NoError(t, err)
			cleared = append(cleared, removed)
			_, err = h.store.Prune(cache.PruneOlderThan(-time.Hour))
			require.NoError(t, err)
		}

		report, err := h.engine.Sync(context.Background(), []Request{
			{URL: repoURL, Branch: "main", Target: h.target("a"), Filters: []string{"src"}},
			{URL: repoURL, Branch: "main", Target: h.target("b"), Filters: []string{"utils"}},
		})
		require.NoError(t, err)
		require.Empty(t, report.Failed())
		for _, removed := range cleared {
			assert.Empty(t, removed)
		}
		assert.Equal(t, []string{"src/lib/lib.go", "src/main.go"}, tree(t, h.target("a")))
		assert.Equal(t, []string{"utils/strings.go"}, tree(t, h.target("b")))
		assert.Zero(t, h.store.InUse(mustKey(t, repoURL, "main", "")))
	}
}

func TestSyncIdempotent(t *testing.T) {
	h := newHarness(t, 4)
	requests := []Request{
		{URL: repoURL, Branch: "main", Target: h.target("a"), Filters: []string{"src"}},
		{URL: repoURL, Branch: "main", Target: h.target("b"), Filters: []string{"utils", "README.md"}},
	}

	first, err := h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)
	require.Empty(t, first.Failed())
	before := digests(t, h, requests)

	// Local edits to a target are overwritten.
	require.NoError(t, os.WriteFile(filepath.Join(h.target("a"), "local.txt"), []byte("x"), 0o644))

	second, err := h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)
	require.Empty(t, second.Failed())
	assert.Equal(t, 0, second.Fetches)
	assert.Equal(t, 1, second.Reused)
	assert.Equal(t, before, digests(t, h, requests))
	for _, res := range second.Results {
		assert.False(t, res.Fetched)
	}
}

func digests(t *testing.T, h *harness, requests []Request) []map[string]uint64 {
	t.Helper()
	x := extract.New()
	var out []map[string]uint64
	for _, r := range requests {
		d, err := x.Digest(r.Target)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func TestSyncSequentialMatchesConcurrent(t *testing.T) {
	build := func(h *harness) []Request {
		return []Request{
			{URL: repoURL, Branch: "main", Target: h.target("a"), Filters: []string{"src/"}},
			{URL: "https://example.com/org/missing", Target: h.target("b")},
			{URL: repoURL, Branch: "main", Target: h.target("c"), Filters: []string{"docs/*.md", "lib"}},
			{URL: otherURL, Target: h.target("d")},
			{URL: repoURL, Branch: "main", Target: h.target("e"), Filters: []string{"absent"}},
			{URL: repoURL, Commit: commitOld[:8], Target: h.target("f")},
			{URL: repoURL, Branch: "main", Target: h.target("g"), Filters: []string{"src/main.go"}},
		}
	}

	type outcome struct {
		code  platformerrors.ErrorCode
		files []string
	}
	run := func(workers int) []outcome {
		h := newHarness(t, workers)
		h.fetcher.delay = 5 * time.Millisecond
		report, err := h.engine.Sync(context.Background(), build(h))
		require.NoError(t, err)

		var out []outcome
		for _, res := range report.Results {
			o := outcome{}
			if res.Err != nil {
				o.code = platformerrors.GetCode(res.Err)
			}
			if _, err := os.Stat(res.Request.Target); err == nil {
				o.files = tree(t, res.Request.Target)
			}
			out = append(out, o)
		}
		return out
	}

	sequential := run(1)
	concurrent := run(8)
	assert.Equal(t, sequential, concurrent)
	assert.Equal(t, []string{"main.go"}, sequential[6].files)
	assert.Equal(t, platformerrors.CodeFilterMatchesNothing, sequential[4].code)
	assert.Equal(t, []string{"src/main.go"}, sequential[5].files)
}

func TestSyncConcurrentRunsNeverOverlap(t *testing.T) {
	h := newHarness(t, 8)
	h.fetcher.delay = 10 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			requests := []Request{
				{URL: repoURL, Branch: "main", Target: h.target(filepath.Join("run", string(rune('a'+i)), "x")), Filters: []string{"src"}},
				{URL: otherURL, Target: h.target(filepath.Join("run", string(rune('a'+i)), "y"))},
			}
			report, err := h.engine.Sync(context.Background(), requests)
			assert.NoError(t, err)
			assert.Empty(t, report.Failed())
		}()
	}
	wg.Wait()

	assert.False(t, h.fetcher.overlap)
	assert.Equal(t, 1, h.fetcher.callsFor(mustKey(t, repoURL, "main", "")))
	assert.Equal(t, 1, h.fetcher.callsFor(mustKey(t, otherURL, "", "")))
}

func TestSyncPinnedCommit(t *testing.T) {
	h := newHarness(t, 4)
	key := mustKey(t, repoURL, "main", commitOld)

	// An entry for the pinned key that resolved to another commit.
	dir := h.store.CheckoutPath(key)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package new"), 0o644))
	require.NoError(t, h.store.Record(key, cache.Entry{
		Path:        dir,
		Commit:      commitNew,
		State:       cache.StateAvailable,
		Coverage:    cache.Coverage{Strategy: cache.StrategyShallowNoSparse},
		LastFetched: h.store.Now(),
	}))

	report, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Commit: commitOld, Target: h.target("pinned")},
	})
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	assert.Equal(t, 1, report.Fetches)
	assert.Equal(t, commitOld, report.Results[0].Commit)

	data, err := os.ReadFile(filepath.Join(h.target("pinned"), "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package old", string(data))

	report, err = h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Commit: "deadbeef", Target: h.target("unknown")},
	})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, platformerrors.CodeCommitMismatch, platformerrors.GetCode(report.Results[0].Err))
}

func TestSyncRefetchesCorruptedCheckout(t *testing.T) {
	h := newHarness(t, 4)
	requests := []Request{{URL: repoURL, Branch: "main", Target: h.target("a"), Filters: []string{"src"}}}

	_, err := h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)

	key := mustKey(t, repoURL, "main", "")
	require.NoError(t, os.RemoveAll(h.store.CheckoutPath(key)))

	report, err := h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	assert.Equal(t, 1, report.Fetches)
	assert.Equal(t, 2, h.fetcher.callsFor(key))
}

func TestSyncTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	h := newHarness(t, 2, cache.WithClock(clock), cache.WithTTL(time.Hour))
	requests := []Request{{URL: otherURL, Target: h.target("a")}}

	_, err := h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(30 * time.Minute)
	mu.Unlock()
	report, err := h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetches)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()
	report, err = h.engine.Sync(context.Background(), requests)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetches)
}

func TestSyncWidensCoverage(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: h.target("a"), Filters: []string{"src"}},
	})
	require.NoError(t, err)

	report, err := h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: h.target("b"), Filters: []string{"utils"}},
	})
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	assert.Equal(t, 1, report.Fetches)

	require.Len(t, h.fetcher.requests, 2)
	assert.Equal(t, []string{"src", "utils"}, h.fetcher.requests[1].Coverage.Paths)

	// Both subsets are now served without another fetch.
	report, err = h.engine.Sync(context.Background(), []Request{
		{URL: repoURL, Branch: "main", Target: h.target("a"), Filters: []string{"src"}},
		{URL: repoURL, Branch: "main", Target: h.target("b"), Filters: []string{"utils"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetches)
}

func TestSyncInvalidRequests(t *testing.T) {
	h := newHarness(t, 4)
	tests := []struct {
		name    string
		request Request
		code    platformerrors.ErrorCode
	}{
		{"bad url", Request{URL: "ftp://example.com/repo", Target: h.target("a")}, platformerrors.CodeInvalidURL},
		{"empty target", Request{URL: repoURL}, platformerrors.CodeInvalidInput},
		{"bad commit", Request{URL: repoURL, Commit: "xyz", Target: h.target("a")}, platformerrors.CodeInvalidInput},
		{"git filter", Request{URL: repoURL, Target: h.target("a"), Filters: []string{".git/config"}}, platformerrors.CodeInvalidInput},
		{"bad strategy", Request{URL: repoURL, Target: h.target("a"), Strategy: "deep"}, platformerrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := h.engine.Sync(context.Background(), []Request{
				{URL: otherURL, Target: h.target("ok")},
				tt.request,
			})
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Equal(t, tt.code, platformerrors.GetCode(err))
		})
	}
	assert.EqualValues(t, 0, h.fetcher.total.Load())
}

func TestSyncCanceled(t *testing.T) {
	h := newHarness(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.engine.Sync(ctx, []Request{{URL: otherURL, Target: h.target("a")}})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, platformerrors.CodeTimeout, platformerrors.GetCode(report.Results[0].Err))
}
