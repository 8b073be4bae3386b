package cache

import (
	"path"
	"sort"
	"strings"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// Strategy selects how much of a remote a fetch transfers.
type Strategy string

const (
	// StrategyPartial fetches a blobless partial clone limited to the needed paths.
	StrategyPartial Strategy = "partial"

	// StrategyShallow fetches a depth-one clone limited to the needed paths.
	StrategyShallow Strategy = "shallow"

	// StrategyShallowNoSparse fetches a depth-one clone of the whole tree.
	StrategyShallowNoSparse Strategy = "shallow_no_sparse"
)

// DefaultStrategy is used when a request names none.
const DefaultStrategy = StrategyShallow

var strategyRank = map[Strategy]int{
	StrategyPartial:         1,
	StrategyShallow:         2,
	StrategyShallowNoSparse: 3,
}

// ParseStrategy parses a strategy name. The empty string yields DefaultStrategy.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	v := Strategy(strings.ToLower(strings.ReplaceAll(s, "-", "_")))
	if _, ok := strategyRank[v]; !ok {
		return "", platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "unknown checkout strategy"),
			"strategy", s,
		)
	}
	return v, nil
}

// Sparse reports whether the strategy may narrow the worktree to paths.
func (s Strategy) Sparse() bool {
	return s != StrategyShallowNoSparse
}

// Covers reports whether s is at least as complete as other.
func (s Strategy) Covers(other Strategy) bool {
	return strategyRank[s] >= strategyRank[other]
}

// MostComplete returns the most complete of the given strategies, or
// DefaultStrategy when none is given.
func MostComplete(strategies ...Strategy) Strategy {
	best := Strategy("")
	for _, s := range strategies {
		if best == "" || strategyRank[s] > strategyRank[best] {
			best = s
		}
	}
	if best == "" {
		return DefaultStrategy
	}
	return best
}

// Coverage describes what a checkout contains. Empty Paths means the whole tree.
type Coverage struct {
	Strategy Strategy `json:"strategy"`
	Paths    []string `json:"paths,omitempty"`
}

// FullTree reports whether the checkout holds every path.
func (c Coverage) FullTree() bool {
	return !c.Strategy.Sparse() || len(c.Paths) == 0
}

// Satisfies reports whether a checkout with coverage c can serve need.
func (c Coverage) Satisfies(need Coverage) bool {
	if !c.Strategy.Covers(need.Strategy) {
		return false
	}
	if c.FullTree() {
		return true
	}
	if need.FullTree() {
		return false
	}
	for _, p := range need.Paths {
		if !covered(c.Paths, p) {
			return false
		}
	}
	return true
}

// MergeCoverage combines the needs of several requests sharing a key. The
// most complete strategy wins, and paths are unioned unless any need is the
// whole tree.
func MergeCoverage(needs ...Coverage) Coverage {
	strategies := make([]Strategy, 0, len(needs))
	full := len(needs) == 0
	var paths []string
	for _, n := range needs {
		strategies = append(strategies, n.Strategy)
		if n.FullTree() {
			full = true
		}
		paths = append(paths, n.Paths...)
	}

	merged := Coverage{Strategy: MostComplete(strategies...)}
	if !full {
		merged.Paths = compactPaths(paths)
		if len(merged.Paths) == 1 && merged.Paths[0] == "" {
			merged.Paths = nil
		}
	}
	return merged
}

func covered(roots []string, p string) bool {
	p = cleanCoveragePath(p)
	for _, r := range roots {
		r = cleanCoveragePath(r)
		if r == "" || p == r || strings.HasPrefix(p, r+"/") {
			return true
		}
	}
	return false
}

// compactPaths sorts, cleans and drops paths already covered by a parent.
func compactPaths(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cleaned = append(cleaned, cleanCoveragePath(p))
	}
	sort.Strings(cleaned)

	var out []string
	for _, p := range cleaned {
		if len(out) > 0 && covered(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func cleanCoveragePath(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
