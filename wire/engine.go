package wire

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/extract"
	"github.com/ab22593k/gitai/wire/fetch"
)

// Fetcher materializes cache keys. *fetch.Fetcher is the production
// implementation.
type Fetcher interface {
	// Fetch replaces the key's checkout and returns the Available entry.
	// The caller holds the key's lock.
	Fetch(ctx context.Context, key cache.Key, req fetch.Request) (*cache.Entry, error)

	// Verify checks a checkout directory and returns its HEAD commit.
	Verify(dir string) (string, error)
}

// Engine runs sync and check passes over a shared cache.
type Engine struct {
	store     *cache.Store
	locks     *cache.LockRegistry
	fetcher   Fetcher
	extractor *extract.Extractor
	remote    git.RemoteOperations

	workers int
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of concurrent fetches and extractions.
// One or fewer runs everything sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithTTL overrides the store's entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithClock sets the time source used for staleness.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRemote sets how Check lists remote references.
func WithRemote(ops git.RemoteOperations) Option {
	return func(e *Engine) {
		e.remote = ops
	}
}

// DefaultWorkers is the default concurrency.
const DefaultWorkers = 4

// New returns an Engine.
func New(store *cache.Store, locks *cache.LockRegistry, fetcher Fetcher, extractor *extract.Extractor, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		locks:     locks,
		fetcher:   fetcher,
		extractor: extractor,
		remote:    git.DefaultRemote(),
		workers:   DefaultWorkers,
		ttl:       store.TTL(),
		now:       store.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the configured concurrency.
func (e *Engine) Workers() int {
	return e.workers
}

// Result is the outcome of one request.
type Result struct {
	OperationID string    `json:"operation_id" yaml:"operation_id"`
	Request     Request   `json:"request" yaml:"request"`
	Key         cache.Key `json:"key" yaml:"key"`

	// CachePath is the checkout the request was served from.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`

	// Fetched is true when the request's key was fetched during this run.
	Fetched bool `json:"fetched" yaml:"fetched"`

	Files    int           `json:"files" yaml:"files"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	Err error `json:"-" yaml:"-"`
}

// OK reports whether the request succeeded.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Report is the outcome of a sync run, one Result per request in input order.
type Report struct {
	Results []Result `json:"results" yaml:"results"`

	// Fetches counts keys fetched during the run.
	Fetches int `json:"fetches" yaml:"fetches"`

	// Reused counts keys served from an existing checkout.
	Reused int `json:"reused" yaml:"reused"`
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// groupOutcome is what happened to a group's cache key.
type groupOutcome struct {
	fetched bool
	reused  bool
}

// Sync fetches every stale key at most once and extracts every request.
// An error is returned only when the request list is invalid; failures of
// individual keys and requests are reported in their Results.
func (e *Engine) Sync(ctx context.Context, requests []Request) (*Report, error) {
	groups, err := Plan(requests)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{Results: make([]Result, len(requests))}
	outcomes := make([]groupOutcome, len(groups))

	if e.workers <= 1 {
		for i := range groups {
			outcomes[i] = e.syncGroup(ctx, &groups[i], report.Results, nil)
		}
	} else {
		// Fetches and extractions share one semaphore. A group goroutine
		// never holds a permit while waiting for another.
		sem := semaphore.NewWeighted(int64(e.workers))
		var eg errgroup.Group
		for i := range groups {
			eg.Go(func() error {
				outcomes[i] = e.syncGroup(ctx, &groups[i], report.Results, sem)
				return nil
			})
		}
		_ = eg.Wait()
	}

	for _, o := range outcomes {
		if o.fetched {
			report.Fetches++
		}
		if o.reused {
			report.Reused++
		}
	}

	e.logger.Info("sync finished",
		"requests", len(requests),
		"keys", len(groups),
		"fetches", report.Fetches,
		"reused", report.Reused,
		"failed", len(report.Failed()),
		"duration", time.Since(start),
	)
	return report, nil
}

// syncGroup serves every member of g, writing one Result per member.
func (e *Engine) syncGroup(ctx context.Context, g *Group, results []Result, sem *semaphore.Weighted) groupOutcome {
	logger := e.logger.With("key", g.Key.String())

	guard, err := e.locks.Acquire(ctx, g.Key)
	if err != nil {
		e.failGroup(g, results, err)
		return groupOutcome{}
	}
	defer guard.Release()

	entry, fetched, err := e.prepare(ctx, g, sem, logger)
	if err != nil {
		logger.Error("cache key failed", "error", err, "retryable", platformerrors.IsRetryable(err))
		e.failGroup(g, results, err)
		return groupOutcome{fetched: fetched}
	}

	// Readers pin the checkout from the moment it is ready until every
	// member is extracted.
	e.store.Retain(g.Key)
	defer e.store.Release(g.Key)

	if sem == nil {
		for _, m := range g.Members {
			results[m.Index] = e.extractMember(ctx, g, m, entry, fetched)
		}
	} else {
		var wg sync.WaitGroup
		for _, m := range g.Members {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := sem.Acquire(ctx, 1); err != nil {
					results[m.Index] = e.memberResult(g, m, entry, fetched)
					results[m.Index].Err = platformerrors.Wrap(err, platformerrors.CodeTimeout, "extraction canceled")
					return
				}
				defer sem.Release(1)
				results[m.Index] = e.extractMember(ctx, g, m, entry, fetched)
			}()
		}
		wg.Wait()
	}

	if err := e.store.Touch(g.Key); err != nil {
		logger.Warn("failed to record cache access", "error", err)
	}
	return groupOutcome{fetched: fetched, reused: !fetched}
}

// prepare returns an Available entry for g, fetching when the cached one
// is missing, stale or corrupted. The caller holds the key's lock.
func (e *Engine) prepare(ctx context.Context, g *Group, sem *semaphore.Weighted, logger *slog.Logger) (*cache.Entry, bool, error) {
	need := g.Coverage
	entry, _ := e.store.Lookup(g.Key)

	stale, reason := entry.Stale(e.now(), e.ttl, need)
	if !stale {
		_, err := e.fetcher.Verify(entry.Path)
		if err == nil {
			logger.Debug("reusing cached checkout", "commit", entry.Commit)
			return entry, false, nil
		}
		if platformerrors.GetCode(err) != platformerrors.CodeCacheCorrupted {
			return nil, false, err
		}
		logger.Warn("cached checkout is corrupted", "error", err)
		if err := e.store.MarkState(g.Key, cache.StateExpired); err != nil {
			return nil, false, err
		}
		reason = cache.StaleCorrupted
	}

	// Keep what the old checkout served so alternating requests do not
	// narrow it back and forth.
	if reason == cache.StaleCoverage {
		need = cache.MergeCoverage(entry.Coverage, need)
	}
	logger.Info("cache key needs fetch", "reason", string(reason), "strategy", need.Strategy)

	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, false, platformerrors.Wrap(err, platformerrors.CodeTimeout, "fetch canceled")
		}
		defer sem.Release(1)
	}

	fetched, err := e.fetcher.Fetch(ctx, g.Key, fetch.Request{URL: g.URL, Coverage: need})
	if err != nil {
		return nil, true, err
	}
	return fetched, true, nil
}

func (e *Engine) extractMember(ctx context.Context, g *Group, m Member, entry *cache.Entry, fetched bool) Result {
	start := time.Now()
	res := e.memberResult(g, m, entry, fetched)

	out, err := e.extractor.Extract(ctx, entry.Path, m.Target, m.Filters)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = platformerrors.WithContextMap(err, map[string]interface{}{
			"key":    g.Key.String(),
			"target": m.Target,
		})
		e.logger.Error("wire operation failed",
			"operation_id", res.OperationID,
			"key", g.Key.String(),
			"target", m.Target,
			"error", err,
			"retryable", platformerrors.IsRetryable(err),
		)
		return res
	}

	res.Files, res.Bytes = out.Files, out.Bytes
	e.logger.Info("wired",
		"operation_id", res.OperationID,
		"key", g.Key.String(),
		"target", m.Target,
		"files", out.Files,
		"duration", res.Duration,
	)
	return res
}

func (e *Engine) memberResult(g *Group, m Member, entry *cache.Entry, fetched bool) Result {
	res := Result{
		OperationID: uuid.NewString(),
		Request:     m.Request,
		Key:         g.Key,
		Fetched:     fetched,
	}
	if entry != nil {
		res.CachePath = entry.Path
		res.Commit = entry.Commit
	}
	return res
}

// failGroup attributes a key-level failure to every member of g.
func (e *Engine) failGroup(g *Group, results []Result, err error) {
	err = platformerrors.WithContext(err, "key", g.Key.String())
	for _, m := range g.Members {
		res := e.memberResult(g, m, nil, false)
		res.Err = err
		results[m.Index] = res
	}
}
