// Package app assembles the wiring engine from settings.
package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ab22593k/gitai/git"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire"
	"github.com/ab22593k/gitai/wire/config"
	"github.com/ab22593k/gitai/wire/extract"
	"github.com/ab22593k/gitai/wire/fetch"
)

// App owns the cache and the engine for one process.
type App struct {
	settings config.Settings
	store    *cache.Store
	engine   *wire.Engine
	logger   *slog.Logger
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	newFetcher func(*cache.Store) wire.Fetcher
	remote     git.RemoteOperations
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFetcher replaces the git fetcher. fn receives the store the fetcher
// writes into.
func WithFetcher(fn func(*cache.Store) wire.Fetcher) Option {
	return func(o *options) {
		o.newFetcher = fn
	}
}

// WithRemote sets how check lists remote references.
func WithRemote(ops git.RemoteOperations) Option {
	return func(o *options) {
		o.remote = ops
	}
}

// New opens the cache described by settings and builds the engine.
func New(settings config.Settings, opts ...Option) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	lockOpts := []cache.LockOption{cache.WithLockLogger(o.logger.With("component", "locks"))}
	if settings.LockDir != "" {
		lockOpts = append(lockOpts, cache.WithLockDir(settings.LockDir))
	}
	locks := cache.NewLockRegistry(lockOpts...)

	// Cleanup takes the same key locks as fetches, so it never removes a
	// checkout another sync is using.
	store, err := cache.NewStore(settings.CacheDir,
		cache.WithTTL(settings.TTL),
		cache.WithLockRegistry(locks),
		cache.WithLogger(o.logger.With("component", "cache")),
	)
	if err != nil {
		return nil, err
	}

	var fetcher wire.Fetcher
	if o.newFetcher != nil {
		fetcher = o.newFetcher(store)
	} else {
		fetcher = fetch.New(store,
			fetch.WithTimeout(settings.Timeout),
			fetch.WithLogger(o.logger.With("component", "fetch")),
		)
	}

	extractor := extract.New(extract.WithLogger(o.logger.With("component", "extract")))

	engineOpts := []wire.Option{
		wire.WithWorkers(settings.Workers),
		wire.WithLogger(o.logger),
	}
	if o.remote != nil {
		engineOpts = append(engineOpts, wire.WithRemote(o.remote))
	}

	o.logger.Debug("engine ready",
		"cache_dir", settings.CacheDir,
		"workers", settings.Workers,
		"ttl", settings.TTL,
		"timeout", settings.Timeout,
		"lock_dir", settings.LockDir,
	)

	return &App{
		settings: settings,
		store:    store,
		engine:   wire.New(store, locks, fetcher, extractor, engineOpts...),
		logger:   o.logger,
	}, nil
}

// Settings returns the settings the App was built with.
func (a *App) Settings() config.Settings {
	return a.settings
}

// Sync runs a sync pass.
func (a *App) Sync(ctx context.Context, requests []wire.Request) (*wire.Report, error) {
	return a.engine.Sync(ctx, requests)
}

// Check runs a dry-run pass.
func (a *App) Check(ctx context.Context, requests []wire.Request, opts wire.CheckOptions) (*wire.CheckReport, error) {
	return a.engine.Check(ctx, requests, opts)
}

// PruneOptions selects cache entries to remove. With no field set, expired
// entries are pruned.
type PruneOptions struct {
	Expired   bool
	OlderThan time.Duration
	MaxSize   int64
}

func (o PruneOptions) strategies() []cache.PruneStrategy {
	var strategies []cache.PruneStrategy
	if o.Expired {
		strategies = append(strategies, cache.PruneExpired())
	}
	if o.OlderThan > 0 {
		strategies = append(strategies, cache.PruneOlderThan(o.OlderThan))
	}
	if o.MaxSize > 0 {
		strategies = append(strategies, cache.PruneToSize(o.MaxSize))
	}
	return strategies
}

// Prune removes cache entries matching opts and returns their keys.
func (a *App) Prune(opts PruneOptions) ([]cache.Key, error) {
	keys, err := a.store.Prune(opts.strategies()...)
	if err != nil {
		return nil, err
	}
	a.logger.Info("cache pruned", "removed", len(keys))
	return keys, nil
}

// Clear removes every cache entry that is not in use, being fetched or
// locked by another sync.
func (a *App) Clear() ([]cache.Key, error) {
	keys, err := a.store.Clear()
	if err != nil {
		return nil, err
	}
	a.logger.Info("cache cleared", "removed", len(keys))
	return keys, nil
}

// Stats summarizes the cache.
func (a *App) Stats() (*cache.Stats, error) {
	return a.store.Stats()
}

// Entries lists cache entries.
func (a *App) Entries() []*cache.Entry {
	return a.store.List()
}

// StartGC prunes expired entries every interval until the returned
// function is called.
func (a *App) StartGC(interval time.Duration) (stop func()) {
	return a.store.StartGC(interval, cache.PruneExpired())
}
