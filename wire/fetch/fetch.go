// Package fetch materializes one cache key as a local checkout.
//
// The git CLI does the writing (init, sparse-checkout, fetch, checkout) and
// go-git verifies the result. A fetch runs only while the caller holds the
// key's lock; it moves the store entry through Pulling, Cached or Refreshed,
// and Available, or back to NotCached on any failure.
package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git"
	"github.com/ab22593k/gitai/git/cache"
)

// PartialFilter is the object filter used by the partial strategy.
const PartialFilter = "blob:none"

// Request describes what a fetch must produce.
type Request struct {
	// URL is the remote as the user wrote it.
	URL string

	// Coverage is the merged need of every request sharing the key.
	Coverage cache.Coverage
}

// Fetcher performs checkouts into a Store.
type Fetcher struct {
	store   *cache.Store
	git     *git.CLI
	timeout time.Duration
	logger  *slog.Logger

	fetches atomic.Int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithGit sets the git CLI. Defaults to git.NewCLI().
func WithGit(cli *git.CLI) Option {
	return func(f *Fetcher) {
		f.git = cli
	}
}

// WithTimeout bounds each fetch. Zero means no limit beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New returns a Fetcher writing into store.
func New(store *cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.git == nil {
		f.git = git.NewCLI()
	}
	return f
}

// Fetches returns how many fetches this Fetcher has started.
func (f *Fetcher) Fetches() int64 {
	return f.fetches.Load()
}

// Fetch replaces the checkout of key with a fresh one and returns the
// resulting Available entry. The caller must hold the key's lock.
func (f *Fetcher) Fetch(ctx context.Context, key cache.Key, req Request) (entry *cache.Entry, err error) {
	f.fetches.Add(1)
	start := time.Now()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	prev, _ := f.store.Lookup(key)
	refresh := prev != nil && !prev.LastFetched.IsZero()

	if err := f.enterPulling(key, prev); err != nil {
		return nil, err
	}

	logger := f.logger.With("key", key.String(), "url", req.URL, "strategy", req.Coverage.Strategy)
	logger.Info("fetching repository")

	defer func() {
		if err == nil {
			return
		}
		err = timeoutError(ctx, err)
		if rmErr := f.store.RemoveCheckout(key); rmErr != nil {
			logger.Warn("failed to remove partial checkout", "error", rmErr)
		}
		if stErr := f.store.MarkState(key, cache.StateNotCached); stErr != nil {
			logger.Warn("failed to reset cache state", "error", stErr)
		}
		logger.Error("fetch failed", "error", err, "duration", time.Since(start))
		err = platformerrors.WithContextMap(err, map[string]interface{}{
			"key": key.String(),
			"url": req.URL,
		})
	}()

	if err := f.store.RemoveCheckout(key); err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeFetchFailed, "failed to clear old checkout")
	}

	dir := f.store.CheckoutPath(key)
	coverage, err := f.checkout(ctx, key, req, dir, logger)
	if err != nil {
		return nil, err
	}

	next := cache.StateCached
	if refresh {
		next = cache.StateRefreshed
	}
	if err := f.store.MarkState(key, next); err != nil {
		return nil, err
	}

	commit, err := f.Verify(dir)
	if err != nil {
		return nil, err
	}
	if key.Pinned() && !git.MatchesCommit(commit, key.Commit) {
		return nil, platformerrors.WithContextMap(
			platformerrors.New(platformerrors.CodeCommitMismatch, "checkout does not match pinned commit"),
			map[string]interface{}{"want": key.Commit, "got": commit},
		)
	}

	current, _ := f.store.Lookup(key)
	now := f.store.Now()
	current.RemoteURL = req.URL
	current.Commit = commit
	current.Coverage = coverage
	current.LastFetched = now
	current.LastAccess = now
	if err := f.store.Record(key, *current); err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeFetchFailed, "failed to record cache entry")
	}
	if err := f.store.MarkState(key, cache.StateAvailable); err != nil {
		return nil, err
	}

	logger.Info("repository fetched", "commit", commit, "duration", time.Since(start))
	entry, _ = f.store.Lookup(key)
	return entry, nil
}

// enterPulling moves the entry to Pulling from wherever it is. An Available
// entry is expired first; anything else not allowed to pull is reset.
func (f *Fetcher) enterPulling(key cache.Key, prev *cache.Entry) error {
	if prev != nil && !prev.State.CanTransition(cache.StatePulling) {
		fallback := cache.StateNotCached
		if prev.State == cache.StateAvailable {
			fallback = cache.StateExpired
		}
		if err := f.store.MarkState(key, fallback); err != nil {
			return err
		}
	}
	return f.store.MarkState(key, cache.StatePulling)
}

// checkout builds the worktree at dir and returns the coverage it achieved.
func (f *Fetcher) checkout(ctx context.Context, key cache.Key, req Request, dir string, logger *slog.Logger) (cache.Coverage, error) {
	coverage := req.Coverage
	if coverage.Strategy == "" {
		coverage.Strategy = cache.DefaultStrategy
	}

	if err := f.git.Init(ctx, dir); err != nil {
		return coverage, err
	}
	if err := f.git.AddRemote(ctx, dir, "origin", req.URL); err != nil {
		return coverage, err
	}

	var filter string
	if coverage.Strategy == cache.StrategyPartial {
		filter = PartialFilter
		if err := f.git.SetConfig(ctx, dir, "remote.origin.promisor", "true"); err != nil {
			return coverage, err
		}
		if err := f.git.SetConfig(ctx, dir, "remote.origin.partialclonefilter", filter); err != nil {
			return coverage, err
		}
	}

	if !coverage.FullTree() {
		if err := f.git.SparseCheckout(ctx, dir, coverage.Paths); err != nil {
			if ctx.Err() != nil {
				return coverage, err
			}
			logger.Warn("sparse checkout unavailable, fetching full tree", "error", err)
			coverage.Paths = nil
		}
	}

	err := f.git.Fetch(ctx, dir, git.FetchOptions{Ref: key.Ref(), Depth: 1, Filter: filter})
	if err == nil {
		return coverage, f.git.Checkout(ctx, dir, "FETCH_HEAD")
	}
	if !key.Pinned() || ctx.Err() != nil {
		return coverage, err
	}

	// Servers may refuse to serve an arbitrary or abbreviated commit. Fetch
	// the branch with full history and resolve the commit locally.
	logger.Debug("direct commit fetch failed, fetching branch history", "commit", key.Commit, "error", err)
	if err := f.git.Fetch(ctx, dir, git.FetchOptions{Ref: key.Branch, Filter: filter}); err != nil {
		return coverage, err
	}
	if err := f.git.Checkout(ctx, dir, key.Commit); err != nil {
		if ctx.Err() != nil {
			return coverage, err
		}
		return coverage, platformerrors.WithContext(
			platformerrors.Wrap(err, platformerrors.CodeCommitMismatch, "pinned commit not found on remote"),
			"commit", key.Commit,
		)
	}
	return coverage, nil
}

// Verify checks that dir holds a usable checkout: it exists, contains
// something besides .git, and HEAD resolves. It returns the HEAD commit.
// Failures are CACHE_CORRUPTED.
func (f *Fetcher) Verify(dir string) (string, error) {
	fs := f.store.Filesystem()

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return "", corrupted(err, dir, "checkout directory unreadable")
	}
	content := false
	for _, e := range entries {
		if e.Name() != ".git" {
			content = true
			break
		}
	}
	if !content {
		return "", corrupted(nil, dir, "checkout is empty")
	}

	repo, err := git.Open(dir, git.WithFilesystem(fs))
	if err != nil {
		return "", corrupted(err, dir, "checkout is not a repository")
	}
	head, err := repo.Head()
	if err != nil {
		return "", corrupted(err, dir, "HEAD does not resolve")
	}
	return head, nil
}

func corrupted(err error, dir, msg string) error {
	var perr platformerrors.PlatformError
	if err == nil {
		perr = platformerrors.New(platformerrors.CodeCacheCorrupted, msg)
	} else {
		perr = platformerrors.Wrap(err, platformerrors.CodeCacheCorrupted, msg)
	}
	return platformerrors.WithContext(perr, "path", dir)
}

// timeoutError reports a fetch cut short by its deadline as FETCH_TIMEOUT,
// whatever the git CLI printed on the way out.
func timeoutError(ctx context.Context, err error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) || platformerrors.HasCode(err, platformerrors.CodeFetchTimeout) {
		return err
	}
	return platformerrors.Wrap(err, platformerrors.CodeFetchTimeout, "fetch timed out")
}
