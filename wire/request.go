package wire

import (
	"path/filepath"
	"strings"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/extract"
)

// Request asks for the filtered content of one repository at one target.
type Request struct {
	// Name identifies the request in reports. Optional.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	URL string `json:"url" yaml:"url"`

	// Branch defaults to the remote's default branch.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`

	// Commit pins the checkout to a full or abbreviated commit hash.
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`

	// Target is the directory the filtered files replace.
	Target string `json:"target" yaml:"target"`

	// Filters are paths or glob patterns relative to the repository root.
	// An empty list copies the whole checkout.
	Filters []string `json:"filters,omitempty" yaml:"filters,omitempty"`

	// Strategy defaults to cache.DefaultStrategy.
	Strategy cache.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// Label returns the request's name, or its URL and target when unnamed.
func (r Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.URL + " -> " + r.Target
}

// Validate checks the request without touching the network or the disk.
func (r Request) Validate() error {
	_, err := r.resolve()
	return err
}

// resolved is a validated request.
type resolved struct {
	key      cache.Key
	target   string
	filters  []extract.Filter
	coverage cache.Coverage
}

func (r Request) resolve() (*resolved, error) {
	key, err := cache.NewKey(r.URL, r.Branch, r.Commit)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(r.Target) == "" {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "target path is empty")
	}
	target, err := filepath.Abs(r.Target)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "invalid target path")
	}

	filters, err := extract.ParseFilters(r.Filters)
	if err != nil {
		return nil, err
	}

	strategy := cache.DefaultStrategy
	if r.Strategy != "" {
		if strategy, err = cache.ParseStrategy(string(r.Strategy)); err != nil {
			return nil, err
		}
	}

	// Globs and whole-tree requests are only known at extraction time, so
	// they need every path of the branch.
	coverage := cache.Coverage{Strategy: cache.StrategyShallowNoSparse}
	if paths, ok := extract.Paths(filters); ok {
		coverage = cache.Coverage{Strategy: strategy, Paths: paths}
	}

	return &resolved{key: key, target: target, filters: filters, coverage: coverage}, nil
}

// requestError adds the request's identity to a validation error.
func requestError(err error, index int, r Request) error {
	return platformerrors.WithContextMap(err, map[string]interface{}{
		"request": r.Label(),
		"index":   index,
	})
}
