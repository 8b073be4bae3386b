package cache

import (
	"fmt"
	"sort"
	"time"
)

// Prune removes entries based on the provided strategies and returns the
// removed keys. Entries in use, being fetched or locked are never removed.
//
// If no strategies are provided, defaults to removing expired entries.
//
// Examples:
//
//	// Remove expired entries (state or TTL based)
//	store.Prune()
//
//	// Remove entries not accessed in 7 days
//	store.Prune(PruneOlderThan(7*24*time.Hour))
//
//	// Multiple strategies (OR logic)
//	store.Prune(PruneExpired(), PruneOlderThan(30*24*time.Hour))
func (s *Store) Prune(strategies ...PruneStrategy) ([]Key, error) {
	// Default to PruneExpired if no strategies provided
	if len(strategies) == 0 {
		strategies = []PruneStrategy{PruneExpired()}
	}

	// Check if PruneToSize is among the strategies
	var sizeStrategy *pruneToSize
	var otherStrategies []PruneStrategy
	for _, strategy := range strategies {
		switch ps := strategy.(type) {
		case *pruneToSize:
			sizeStrategy = ps
		case *pruneExpired:
			if ps.ttl == 0 {
				ps = &pruneExpired{ttl: s.ttl}
			}
			otherStrategies = append(otherStrategies, ps)
		default:
			otherStrategies = append(otherStrategies, strategy)
		}
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track what to remove
	marked := make(map[Key]bool)
	var toRemove []Key

	// Apply standard strategies (OR logic)
	for key, entry := range s.entries {
		if s.refs[key] > 0 || entry.State.Transient() {
			continue
		}
		for _, strategy := range otherStrategies {
			if strategy.ShouldPrune(entry, now) {
				marked[key] = true
				toRemove = append(toRemove, key)
				break
			}
		}
	}

	// Apply size strategy if present (requires special handling)
	if sizeStrategy != nil {
		sizeToRemove, err := s.applySizeStrategy(sizeStrategy, marked)
		if err != nil {
			return nil, fmt.Errorf("failed to apply size strategy: %w", err)
		}
		toRemove = append(toRemove, sizeToRemove...)
	}

	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i].String() < toRemove[j].String() })

	var removed []Key
	for _, key := range toRemove {
		release, ok := s.claim(key)
		if !ok {
			s.logger.Debug("skipping busy cache entry", "key", key.String())
			continue
		}
		err := s.removeLocked(key)
		release()
		if err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", key, err)
		}
		removed = append(removed, key)
	}

	if len(removed) > 0 {
		s.logger.Info("pruned cache", "removed", len(removed))
	}
	return removed, nil
}

// applySizeStrategy determines which entries to remove to stay under the
// size limit. It removes least-recently-accessed entries first and skips
// entries in use. Callers hold s.mu.
func (s *Store) applySizeStrategy(strategy *pruneToSize, alreadyMarked map[Key]bool) ([]Key, error) {
	type candidate struct {
		key        Key
		size       int64
		lastAccess time.Time
	}

	var (
		candidates []candidate
		totalSize  int64
	)
	for key, entry := range s.entries {
		size, err := s.entrySize(key)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate size of %s: %w", key, err)
		}

		// Entries already marked no longer count against the limit
		if alreadyMarked[key] {
			continue
		}
		totalSize += size

		if s.refs[key] > 0 || entry.State.Transient() {
			continue
		}

		last := entry.LastAccess
		if last.IsZero() {
			last = entry.LastFetched
		}
		candidates = append(candidates, candidate{key: key, size: size, lastAccess: last})
	}

	// If already under limit, nothing to do
	if totalSize <= strategy.maxBytes {
		return nil, nil
	}

	// Sort by last access time (oldest first)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].lastAccess.Equal(candidates[j].lastAccess) {
			return candidates[i].key.String() < candidates[j].key.String()
		}
		return candidates[i].lastAccess.Before(candidates[j].lastAccess)
	})

	// Remove candidates until we're under the limit
	var toRemove []Key
	currentSize := totalSize

	for _, c := range candidates {
		if currentSize <= strategy.maxBytes {
			break
		}

		toRemove = append(toRemove, c.key)
		currentSize -= c.size
	}

	return toRemove, nil
}
