package cache

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	platformerrors "github.com/ab22593k/gitai/errors"
)

const (
	checkoutDirName  = "checkout"
	metadataFileName = "metadata.json"
)

// Store owns the cached checkouts under a root directory and their metadata.
//
// Each key gets one subdirectory, <root>/<key path>, holding metadata.json
// and the checkout/ worktree. Metadata is kept in memory and written through
// on every change. Reads return copies, so a reader sees an entry either
// before or after a concurrent update, never in between.
type Store struct {
	root   string
	fs     billy.Filesystem
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	locks  *LockRegistry

	mu      sync.RWMutex
	entries map[Key]*Entry
	refs    map[Key]int
}

// NewStore opens or creates the cache at root, loading persisted metadata.
//
// By default, NewStore uses the local filesystem (osfs). A custom
// filesystem can be provided via WithFilesystem for testing purposes.
//
// Example:
//
//	store, err := cache.NewStore(filepath.Join(os.TempDir(), "git-wire-cache"))
func NewStore(root string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		fs:     osfs.New("/"),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(options)
	}

	if root == "" {
		return nil, platformerrors.New(platformerrors.CodeInvalidConfig, "cache root is empty")
	}

	if err := options.fs.MkdirAll(root, 0o755); err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "failed to create cache root %s", root)
	}

	s := &Store{
		root:    filepath.Clean(root),
		fs:      options.fs,
		ttl:     options.ttl,
		now:     options.now,
		logger:  options.logger,
		locks:   options.locks,
		entries: make(map[Key]*Entry),
		refs:    make(map[Key]int),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache metadata: %w", err)
	}

	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// TTL returns the configured entry lifetime; zero means no age expiry.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Filesystem returns the filesystem the cache lives on.
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

func (s *Store) entryDir(key Key) string {
	return filepath.Join(s.root, filepath.FromSlash(key.Path()))
}

// CheckoutPath returns the worktree directory of key.
func (s *Store) CheckoutPath(key Key) string {
	return filepath.Join(s.entryDir(key), checkoutDirName)
}

// Lookup returns a copy of the entry for key.
func (s *Store) Lookup(key Key) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return e.clone(), ok
}

// Record replaces the entry for key and persists it. Path and CreatedAt are
// filled in when empty.
func (s *Store) Record(key Key, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := entry.clone()
	next.Key = key
	if next.Path == "" {
		next.Path = s.CheckoutPath(key)
	}
	if next.State == "" {
		next.State = StateNotCached
	}
	if next.CreatedAt.IsZero() {
		if prev, ok := s.entries[key]; ok {
			next.CreatedAt = prev.CreatedAt
		} else {
			next.CreatedAt = s.now()
		}
	}

	return s.commit(next)
}

// MarkState moves the entry for key to state. An entry is created in
// StateNotCached on first use. Transitions outside the lifecycle fail with
// CONFLICT.
func (s *Store) MarkState(key Key, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.entries[key].clone()
	if next == nil {
		next = &Entry{
			Key:       key,
			Path:      s.CheckoutPath(key),
			State:     StateNotCached,
			CreatedAt: s.now(),
		}
	}

	if !next.State.CanTransition(state) {
		return platformerrors.WithContextMap(
			platformerrors.Newf(platformerrors.CodeConflict, "invalid cache state transition %s -> %s", next.State, state),
			map[string]interface{}{"key": key.String()},
		)
	}

	s.logger.Debug("cache state", "key", key.String(), "from", next.State, "state", state)
	next.State = state
	return s.commit(next)
}

// Touch records an access to key.
func (s *Store) Touch(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.entries[key].clone()
	if next == nil {
		return platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeNotFound, "cache entry not found"),
			"key", key.String(),
		)
	}
	next.LastAccess = s.now()
	return s.commit(next)
}

// commit persists next and installs it. Callers hold s.mu.
func (s *Store) commit(next *Entry) error {
	if err := s.save(next); err != nil {
		return err
	}
	s.entries[next.Key] = next
	return nil
}

// Retain marks key as in use by one more reader.
func (s *Store) Retain(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[key]++
}

// Release drops one reader of key.
func (s *Store) Release(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs[key] <= 1 {
		delete(s.refs, key)
		return
	}
	s.refs[key]--
}

// InUse returns the number of readers of key.
func (s *Store) InUse(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs[key]
}

// RemoveCheckout deletes the worktree of key but keeps its metadata. Only a
// holder of the key's lock may call it.
func (s *Store) RemoveCheckout(key Key) error {
	if err := util.RemoveAll(s.fs, s.CheckoutPath(key)); err != nil {
		return fmt.Errorf("failed to remove checkout: %w", err)
	}
	return nil
}

// Remove deletes the entry and checkout of key. It fails with CONFLICT while
// the entry is in use, being fetched, or its lock is held.
func (s *Store) Remove(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, ok := s.claim(key)
	if !ok {
		return platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeConflict, "cache entry is in use"),
			"key", key.String(),
		)
	}
	defer release()
	return s.removeLocked(key)
}

// claim reports whether key may be deleted now and, if so, holds its lock
// until release is called. Callers hold s.mu.
func (s *Store) claim(key Key) (release func(), ok bool) {
	if s.refs[key] > 0 {
		return nil, false
	}
	if e, found := s.entries[key]; found && e.State.Transient() {
		return nil, false
	}
	if s.locks == nil {
		return func() {}, true
	}
	guard, ok := s.locks.TryAcquire(key)
	if !ok {
		return nil, false
	}
	return guard.Release, true
}

func (s *Store) removeLocked(key Key) error {
	if err := util.RemoveAll(s.fs, s.CheckoutPath(key)); err != nil {
		return fmt.Errorf("failed to remove checkout: %w", err)
	}
	metaPath := filepath.Join(s.entryDir(key), metadataFileName)
	if err := s.fs.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove metadata: %w", err)
	}
	delete(s.entries, key)

	if err := s.fs.Remove(s.entryDir(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove cache entry directory", "key", key.String(), "error", err)
	}

	s.logger.Debug("cache entry removed", "key", key.String())
	return nil
}

// List returns copies of all entries ordered by key.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Stats returns statistics about the cache.
func (s *Store) Stats() (*Stats, error) {
	entries := s.List()

	stats := &Stats{
		Entries: len(entries),
		ByState: make(map[State]int),
	}

	for _, e := range entries {
		stats.ByState[e.State]++
		if s.InUse(e.Key) > 0 {
			stats.InUse++
		}

		size, err := s.entrySize(e.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to size %s: %w", e.Key, err)
		}
		stats.TotalSize += size

		if e.LastFetched.IsZero() {
			continue
		}
		fetched := e.LastFetched
		if stats.OldestFetch == nil || fetched.Before(*stats.OldestFetch) {
			stats.OldestFetch = &fetched
		}
		if stats.NewestFetch == nil || fetched.After(*stats.NewestFetch) {
			stats.NewestFetch = &fetched
		}
	}

	return stats, nil
}

// Clear removes every entry that is not in use, being fetched or locked,
// and returns the removed keys.
func (s *Store) Clear() ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var removed []Key
	for _, k := range keys {
		release, ok := s.claim(k)
		if !ok {
			s.logger.Info("skipping busy cache entry", "key", k.String())
			continue
		}
		err := s.removeLocked(k)
		release()
		if err != nil {
			return removed, err
		}
		removed = append(removed, k)
	}
	return removed, nil
}
