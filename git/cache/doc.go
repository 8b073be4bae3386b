// Package cache keeps one local checkout per repository key and tracks its
// lifecycle.
//
// # Keys
//
// A Key is derived from a repository URL, a branch and an optional pinned
// commit. URLs are normalized so that equivalent remotes collapse:
//
//	https://GitHub.com/my/repo.git  ─┐
//	git@github.com:my/repo           ├─ github.com/my/repo#main
//	ssh://git@github.com:22/my/repo ─┘
//
// Different branches or commits of one remote are separate keys.
//
// # Layout
//
//	<root>/
//	└── github.com/my/repo/
//	    ├── main/
//	    │   ├── metadata.json    # Entry: state, commit, coverage, timestamps
//	    │   └── checkout/        # worktree written by the fetcher
//	    └── main@0123abcd/
//
// # Lifecycle
//
//	NotCached → Pulling → Cached → Available → Expired → Pulling → Refreshed → Available
//
// Any state may fall back to NotCached when a fetch fails. Entries found in
// Pulling, Cached or Refreshed on load were interrupted and are demoted to
// NotCached.
//
// # Locking
//
// LockRegistry serializes work per key. Only the lock holder writes a key's
// checkout; readers pin the entry with Store.Retain so Remove and Prune leave
// it alone.
//
//	guard, err := locks.Acquire(ctx, key)
//	if err != nil {
//	    return err
//	}
//	defer guard.Release()
package cache
