package cache

import (
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
)

// StoreOption configures Store creation.
type StoreOption func(*storeOptions)

type storeOptions struct {
	fs     billy.Filesystem // Filesystem to use for all I/O operations
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	locks  *LockRegistry
}

// WithFilesystem sets the billy filesystem to use for cache operations.
// If not provided, defaults to osfs.New("/"), so the root must be absolute.
//
// This option is primarily useful for testing, allowing use of memfs or other
// virtual filesystems.
//
// Example:
//
//	store, err := cache.NewStore("/cache/path",
//	    cache.WithFilesystem(memfs.New()))
func WithFilesystem(fs billy.Filesystem) StoreOption {
	return func(opts *storeOptions) {
		opts.fs = fs
	}
}

// WithTTL sets the age after which an Available entry is stale. Zero, the
// default, disables age expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(opts *storeOptions) {
		opts.ttl = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(opts *storeOptions) {
		opts.now = now
	}
}

// WithLockRegistry makes Remove, Prune and Clear take each key's lock
// before deleting it. Keys whose lock is held, by a sync in this process or
// in another one sharing the lock directory, are skipped.
func WithLockRegistry(r *LockRegistry) StoreOption {
	return func(opts *storeOptions) {
		opts.locks = r
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(opts *storeOptions) {
		opts.logger = logger
	}
}

// PruneExpired removes entries that cannot be reused without a fetch:
// Expired or NotCached entries, and entries older than the store TTL.
// This is the default strategy if no strategies are provided.
func PruneExpired() PruneStrategy {
	return &pruneExpired{}
}

// PruneOlderThan removes entries not accessed within the specified duration.
//
// Example:
//
//	store.Prune(cache.PruneOlderThan(7 * 24 * time.Hour))
func PruneOlderThan(maxAge time.Duration) PruneStrategy {
	return &pruneOlderThan{maxAge: maxAge}
}

// PruneToSize removes least-recently-accessed entries until the total cache
// size is under the limit.
//
// Example:
//
//	store.Prune(cache.PruneToSize(10 << 30))
func PruneToSize(maxBytes int64) PruneStrategy {
	return &pruneToSize{maxBytes: maxBytes}
}

// LockOption configures a LockRegistry.
type LockOption func(*LockRegistry)

// WithLockDir adds a file lock per key under dir, so separate processes
// sharing a cache root never fetch the same key at once.
func WithLockDir(dir string) LockOption {
	return func(r *LockRegistry) {
		r.dir = dir
	}
}

// WithLockRetry sets how often a contended file lock is retried.
func WithLockRetry(d time.Duration) LockOption {
	return func(r *LockRegistry) {
		r.retry = d
	}
}

// WithLockLogger sets the registry logger.
func WithLockLogger(logger *slog.Logger) LockOption {
	return func(r *LockRegistry) {
		r.logger = logger
	}
}
