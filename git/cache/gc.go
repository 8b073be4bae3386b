package cache

import (
	"context"
	"sync"
	"time"
)

// StartGC prunes the store every interval with strategies until the
// returned stop function is called. With no strategies, expired entries are
// pruned. A non-positive interval starts nothing.
//
// stop blocks until an in-flight prune finishes and may be called more than
// once.
//
//	stop := store.StartGC(5*time.Minute, PruneExpired())
//	defer stop()
func (s *Store) StartGC(interval time.Duration, strategies ...PruneStrategy) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	if len(strategies) == 0 {
		strategies = []PruneStrategy{&pruneExpired{ttl: s.ttl}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			removed, err := s.Prune(strategies...)
			if err != nil {
				s.logger.Warn("background prune failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("background prune removed entries", "count", len(removed))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
