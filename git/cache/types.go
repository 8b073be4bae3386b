package cache

import (
	"time"

	"github.com/ab22593k/gitai/git"
)

// Entry is the metadata of one cached checkout.
type Entry struct {
	Key Key `json:"key"`

	// RemoteURL is the URL the checkout was fetched from, before normalization.
	RemoteURL string `json:"remote_url"`

	// Path is the absolute checkout directory.
	Path string `json:"path"`

	// Commit is the resolved commit hash of the checkout.
	Commit string `json:"commit,omitempty"`

	State    State    `json:"state"`
	Coverage Coverage `json:"coverage"`

	CreatedAt   time.Time `json:"created_at"`
	LastFetched time.Time `json:"last_fetched,omitempty"`
	LastAccess  time.Time `json:"last_access,omitempty"`
}

// StaleReason explains why an entry needs a fetch.
type StaleReason string

const (
	// StaleNone means the entry can be reused.
	StaleNone StaleReason = ""

	// StaleMissing means no entry exists.
	StaleMissing StaleReason = "missing"

	// StaleState means the entry is not Available.
	StaleState StaleReason = "state"

	// StaleTTL means the entry is older than the configured TTL.
	StaleTTL StaleReason = "ttl"

	// StaleCommit means the entry resolved to a different commit than the pinned one.
	StaleCommit StaleReason = "commit"

	// StaleCoverage means the checkout lacks paths or completeness a request needs.
	StaleCoverage StaleReason = "coverage"

	// StaleRemote means the remote branch moved past the cached commit.
	StaleRemote StaleReason = "remote"

	// StaleCorrupted means the checkout failed verification.
	StaleCorrupted StaleReason = "corrupted"
)

// Stale reports whether the entry must be fetched before serving need, and
// why. A zero ttl disables age expiry.
func (e *Entry) Stale(now time.Time, ttl time.Duration, need Coverage) (bool, StaleReason) {
	if e == nil {
		return true, StaleMissing
	}
	if e.State != StateAvailable {
		return true, StaleState
	}
	if e.Key.Pinned() && !git.MatchesCommit(e.Commit, e.Key.Commit) {
		return true, StaleCommit
	}
	if ttl > 0 && now.Sub(e.LastFetched) > ttl {
		return true, StaleTTL
	}
	if !e.Coverage.Satisfies(need) {
		return true, StaleCoverage
	}
	return false, StaleNone
}

func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Coverage.Paths != nil {
		c.Coverage.Paths = append([]string(nil), e.Coverage.Paths...)
	}
	return &c
}

// Stats summarizes the cache.
type Stats struct {
	Entries   int           `json:"entries" yaml:"entries"`
	InUse     int           `json:"in_use" yaml:"in_use"`
	ByState   map[State]int `json:"by_state" yaml:"by_state"`
	TotalSize int64         `json:"total_size" yaml:"total_size"`

	OldestFetch *time.Time `json:"oldest_fetch,omitempty" yaml:"oldest_fetch,omitempty"`
	NewestFetch *time.Time `json:"newest_fetch,omitempty" yaml:"newest_fetch,omitempty"`
}

// PruneStrategy determines which entries should be removed during pruning.
type PruneStrategy interface {
	ShouldPrune(entry *Entry, now time.Time) bool
}

// pruneExpired implements PruneStrategy for entries that are not reusable:
// expired, left unfinished, or past the store TTL.
type pruneExpired struct {
	ttl time.Duration
}

func (p *pruneExpired) ShouldPrune(entry *Entry, now time.Time) bool {
	switch entry.State {
	case StateExpired, StateNotCached:
		return true
	}
	return p.ttl > 0 && now.Sub(entry.LastFetched) > p.ttl
}

// pruneOlderThan implements PruneStrategy for last-access-based expiration.
type pruneOlderThan struct {
	maxAge time.Duration
}

func (p *pruneOlderThan) ShouldPrune(entry *Entry, now time.Time) bool {
	last := entry.LastAccess
	if last.IsZero() {
		last = entry.LastFetched
	}
	return now.Sub(last) > p.maxAge
}

// pruneToSize implements PruneStrategy for size-based pruning.
type pruneToSize struct {
	maxBytes int64
}

func (p *pruneToSize) ShouldPrune(*Entry, time.Time) bool {
	// Handled by Prune, which needs the sizes of all entries.
	return false
}
