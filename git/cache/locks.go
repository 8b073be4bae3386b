package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// LockRegistry hands out one exclusive lock per Key. Acquiring different
// keys never blocks; the per-key slot is dropped once nobody holds or waits
// for it.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[Key]*keyLock

	dir    string
	retry  time.Duration
	logger *slog.Logger
}

type keyLock struct {
	slot chan struct{}
	refs int // holders plus waiters
}

// Guard is a held key lock.
type Guard struct {
	registry *LockRegistry
	key      Key
	lock     *keyLock
	file     *flock.Flock
	once     sync.Once
}

// NewLockRegistry returns an empty registry.
func NewLockRegistry(opts ...LockOption) *LockRegistry {
	r := &LockRegistry{
		locks:  make(map[Key]*keyLock),
		retry:  100 * time.Millisecond,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire blocks until the lock for key is free or ctx is done. With a lock
// directory configured, the cross-process file lock is taken after the
// in-process one.
func (r *LockRegistry) Acquire(ctx context.Context, key Key) (*Guard, error) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{slot: make(chan struct{}, 1)}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		r.unref(key, l)
		return nil, lockTimeout(ctx, key)
	}

	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		r.unref(key, l)
		return nil, lockTimeout(ctx, key)
	}

	g := &Guard{registry: r, key: key, lock: l}
	if r.dir == "" {
		return g, nil
	}

	file, err := r.lockFile(ctx, key)
	if err != nil {
		<-l.slot
		r.unref(key, l)
		return nil, err
	}
	g.file = file
	return g, nil
}

// TryAcquire takes the lock for key only if it is free right now, in this
// process and, with a lock directory, in every other one.
func (r *LockRegistry) TryAcquire(key Key) (*Guard, bool) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{slot: make(chan struct{}, 1)}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
	default:
		r.unref(key, l)
		return nil, false
	}

	g := &Guard{registry: r, key: key, lock: l}
	if r.dir == "" {
		return g, true
	}

	var (
		file   = flock.New(filepath.Join(r.dir, key.Hash()+".lock"))
		locked bool
	)
	err := os.MkdirAll(r.dir, 0o755)
	if err == nil {
		locked, err = file.TryLock()
	}
	if err != nil || !locked {
		if err != nil {
			r.logger.Warn("failed to try cache file lock", "key", key.String(), "error", err)
		}
		<-l.slot
		r.unref(key, l)
		return nil, false
	}
	g.file = file
	return g, true
}

func (r *LockRegistry) lockFile(ctx context.Context, key Key) (*flock.Flock, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "failed to create lock directory %s", r.dir)
	}

	file := flock.New(filepath.Join(r.dir, key.Hash()+".lock"))
	locked, err := file.TryLockContext(ctx, r.retry)
	if err != nil || !locked {
		if err == nil {
			err = ctx.Err()
		}
		return nil, platformerrors.WithContextMap(
			platformerrors.Wrap(err, platformerrors.CodeTimeout, "failed to acquire cache file lock"),
			map[string]interface{}{"key": key.String(), "path": file.Path()},
		)
	}
	r.logger.Debug("file lock acquired", "key", key.String(), "path", file.Path())
	return file, nil
}

func (r *LockRegistry) unref(key Key, l *keyLock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l.refs--
	if l.refs == 0 && r.locks[key] == l {
		delete(r.locks, key)
	}
}

// Len returns the number of keys currently held or waited for.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

// Key returns the key the guard holds.
func (g *Guard) Key() Key {
	return g.key
}

// Release unlocks the key. Calling it more than once is a no-op.
func (g *Guard) Release() {
	g.once.Do(func() {
		if g.file != nil {
			if err := g.file.Unlock(); err != nil {
				g.registry.logger.Warn("failed to release file lock", "key", g.key.String(), "error", err)
			}
		}
		<-g.lock.slot
		g.registry.unref(g.key, g.lock)
	})
}

func lockTimeout(ctx context.Context, key Key) error {
	return platformerrors.WithContext(
		platformerrors.Wrap(ctx.Err(), platformerrors.CodeTimeout, "gave up waiting for cache lock"),
		"key", key.String(),
	)
}
