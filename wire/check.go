package wire

import (
	"context"
	"time"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/extract"
)

// Action is what a sync run would do with a cache key.
type Action string

const (
	// ActionFetch means the key has never been fetched.
	ActionFetch Action = "fetch"

	// ActionRefresh means the cached checkout is stale.
	ActionRefresh Action = "refresh"

	// ActionReuse means the cached checkout would be used as is.
	ActionReuse Action = "reuse"
)

// CheckOptions configures a check pass.
type CheckOptions struct {
	// Remote asks the remote for the branch tip and reports a refresh when
	// it moved past the cached commit.
	Remote bool
}

// KeyCheck is the check outcome of one cache key.
type KeyCheck struct {
	Key    cache.Key         `json:"key" yaml:"key"`
	URL    string            `json:"url" yaml:"url"`
	Action Action            `json:"action" yaml:"action"`
	Reason cache.StaleReason `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Commit is the cached commit, if any.
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`

	// RemoteCommit is the remote tip, when CheckOptions.Remote is set.
	RemoteCommit string `json:"remote_commit,omitempty" yaml:"remote_commit,omitempty"`

	Requests []RequestCheck `json:"requests" yaml:"requests"`

	Err error `json:"-" yaml:"-"`
}

// RequestCheck compares one request's target with the cached checkout.
// Diff is nil when the key is not reusable.
type RequestCheck struct {
	Request Request       `json:"request" yaml:"request"`
	Diff    *extract.Diff `json:"diff,omitempty" yaml:"diff,omitempty"`
	Err     error         `json:"-" yaml:"-"`
}

// CheckReport is the outcome of a check pass, one KeyCheck per cache key in
// the order keys first appear.
type CheckReport struct {
	Keys []KeyCheck `json:"keys" yaml:"keys"`
}

// Changed reports whether a sync run would fetch anything or change any
// target, or whether the check itself failed somewhere.
func (r *CheckReport) Changed() bool {
	for _, k := range r.Keys {
		if k.Action != ActionReuse || k.Err != nil {
			return true
		}
		for _, rc := range k.Requests {
			if rc.Err != nil || rc.Diff == nil || !rc.Diff.Empty() {
				return true
			}
		}
	}
	return false
}

// Check reports what Sync would do without writing the cache or any target.
// An error is returned only when the request list is invalid.
func (e *Engine) Check(ctx context.Context, requests []Request, opts CheckOptions) (*CheckReport, error) {
	groups, err := Plan(requests)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &CheckReport{Keys: make([]KeyCheck, 0, len(groups))}
	for i := range groups {
		report.Keys = append(report.Keys, e.checkGroup(ctx, &groups[i], opts))
	}

	e.logger.Info("check finished", "keys", len(groups), "changed", report.Changed(), "duration", time.Since(start))
	return report, nil
}

func (e *Engine) checkGroup(ctx context.Context, g *Group, opts CheckOptions) KeyCheck {
	kc := KeyCheck{Key: g.Key, URL: g.URL}
	for _, m := range g.Members {
		kc.Requests = append(kc.Requests, RequestCheck{Request: m.Request})
	}

	// The lock keeps a concurrent fetch from replacing the checkout while
	// it is compared.
	guard, err := e.locks.Acquire(ctx, g.Key)
	if err != nil {
		kc.Err = err
		return kc
	}
	defer guard.Release()

	entry, _ := e.store.Lookup(g.Key)
	if entry != nil {
		kc.Commit = entry.Commit
	}

	stale, reason := entry.Stale(e.now(), e.ttl, g.Coverage)
	switch {
	case entry == nil || (stale && entry.LastFetched.IsZero()):
		kc.Action = ActionFetch
		return kc
	case stale:
		kc.Action, kc.Reason = ActionRefresh, reason
		return kc
	}

	if _, err := e.fetcher.Verify(entry.Path); err != nil {
		if platformerrors.GetCode(err) != platformerrors.CodeCacheCorrupted {
			kc.Err = err
			return kc
		}
		kc.Action, kc.Reason = ActionRefresh, cache.StaleCorrupted
		return kc
	}

	if opts.Remote && !g.Key.Pinned() {
		tip, err := git.ResolveRemote(ctx, e.remote, g.URL, g.Key.Branch)
		if err != nil {
			kc.Err = err
			return kc
		}
		kc.RemoteCommit = tip
		if !git.MatchesCommit(tip, entry.Commit) {
			kc.Action, kc.Reason = ActionRefresh, cache.StaleRemote
			return kc
		}
	}

	kc.Action = ActionReuse
	for i, m := range g.Members {
		diff, err := e.extractor.Compare(entry.Path, m.Target, m.Filters)
		kc.Requests[i].Diff, kc.Requests[i].Err = diff, err
	}
	return kc
}
