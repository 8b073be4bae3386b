package cache

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	platformerrors "github.com/ab22593k/gitai/errors"
)

func TestLockRegistryMutualExclusion(t *testing.T) {
	r := NewLockRegistry()
	key := Key{URL: "example.com/repo", Branch: "main"}

	var (
		active  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := r.Acquire(context.Background(), key)
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer g.Release()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after all releases, want 0", r.Len())
	}
}

func TestLockRegistryIndependentKeys(t *testing.T) {
	r := NewLockRegistry()
	a := Key{URL: "example.com/a", Branch: "main"}
	b := Key{URL: "example.com/b", Branch: "main"}

	ga, err := r.Acquire(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	defer ga.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gb, err := r.Acquire(ctx, b)
	if err != nil {
		t.Fatalf("acquiring a different key blocked: %v", err)
	}
	gb.Release()
}

func TestLockRegistryCancellation(t *testing.T) {
	r := NewLockRegistry()
	key := Key{URL: "example.com/repo", Branch: "main"}

	g, err := r.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(ctx, key)
	if code := platformerrors.GetCode(err); code != platformerrors.CodeTimeout {
		t.Fatalf("code = %s, want %s", code, platformerrors.CodeTimeout)
	}

	g.Release()
	g.Release() // idempotent

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}

	g2, err := r.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("lock not reusable after release: %v", err)
	}
	if g2.Key() != key {
		t.Errorf("Key() = %v", g2.Key())
	}
	g2.Release()
}

func TestLockRegistryFileLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	key := Key{URL: "example.com/repo", Branch: "main"}

	// Two registries stand in for two processes sharing a cache.
	first := NewLockRegistry(WithLockDir(dir), WithLockRetry(5*time.Millisecond))
	second := NewLockRegistry(WithLockDir(dir), WithLockRetry(5*time.Millisecond))

	g, err := first.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := second.Acquire(ctx, key); err == nil {
		t.Fatal("second registry acquired a key held by the first")
	}
	if second.Len() != 0 {
		t.Errorf("failed acquire left state behind: Len() = %d", second.Len())
	}

	g.Release()

	g2, err := second.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	g2.Release()
}

func TestLockRegistryTryAcquire(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	key := Key{URL: "example.com/repo", Branch: "main"}

	local := NewLockRegistry()
	g, err := local.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := local.TryAcquire(key); ok {
		t.Fatal("TryAcquire() succeeded on a held key")
	}
	g.Release()
	g, ok := local.TryAcquire(key)
	if !ok {
		t.Fatal("TryAcquire() failed on a free key")
	}
	g.Release()
	if local.Len() != 0 {
		t.Errorf("Len() = %d after release, want 0", local.Len())
	}

	first := NewLockRegistry(WithLockDir(dir))
	second := NewLockRegistry(WithLockDir(dir))
	g, err = first.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := second.TryAcquire(key); ok {
		t.Fatal("TryAcquire() succeeded on a key locked by another registry")
	}
	if second.Len() != 0 {
		t.Errorf("failed TryAcquire left state behind: Len() = %d", second.Len())
	}
	g.Release()
	g, ok = second.TryAcquire(key)
	if !ok {
		t.Fatal("TryAcquire() failed after the other registry released")
	}
	g.Release()
}
