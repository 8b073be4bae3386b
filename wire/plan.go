package wire

import (
	"path/filepath"
	"sort"
	"strings"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/extract"
)

// Group is the set of requests sharing one cache key.
type Group struct {
	Key cache.Key

	// URL is the remote as written by the first request of the group.
	URL string

	// Coverage is what the shared checkout must contain to serve every member.
	Coverage cache.Coverage

	Members []Member
}

// Member is one request of a Group.
type Member struct {
	// Index is the request's position in the input list.
	Index   int
	Request Request
	Target  string
	Filters []extract.Filter
}

// Plan validates requests and groups them by cache key, in the order keys
// first appear. Any invalid request fails the whole plan.
func Plan(requests []Request) ([]Group, error) {
	var groups []Group
	byKey := make(map[cache.Key]int)
	needs := make(map[cache.Key][]cache.Coverage)

	for i, r := range requests {
		res, err := r.resolve()
		if err != nil {
			return nil, requestError(err, i, r)
		}

		idx, ok := byKey[res.key]
		if !ok {
			idx = len(groups)
			byKey[res.key] = idx
			groups = append(groups, Group{Key: res.key, URL: r.URL})
		}
		groups[idx].Members = append(groups[idx].Members, Member{
			Index:   i,
			Request: r,
			Target:  res.target,
			Filters: res.filters,
		})
		needs[res.key] = append(needs[res.key], res.coverage)
	}

	if err := checkTargets(groups); err != nil {
		return nil, err
	}

	for i := range groups {
		groups[i].Coverage = cache.MergeCoverage(needs[groups[i].Key]...)
	}
	return groups, nil
}

// checkTargets rejects requests whose targets coincide or nest, since each
// extraction replaces its whole target.
func checkTargets(groups []Group) error {
	var targets []string
	for _, g := range groups {
		for _, m := range g.Members {
			targets = append(targets, m.Target)
		}
	}
	sort.Strings(targets)

	for i, a := range targets {
		for _, b := range targets[i+1:] {
			if nested(a, b) || nested(b, a) {
				return platformerrors.WithContextMap(
					platformerrors.New(platformerrors.CodeInvalidConfig, "target paths overlap"),
					map[string]interface{}{"target": a, "other": b},
				)
			}
		}
	}
	return nil
}

// nested reports whether child is parent or lies inside it.
func nested(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
