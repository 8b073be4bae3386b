package git

import (
	"context"
	"strconv"
	"strings"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/exec"
)

// CLI drives the git binary for the write side of a checkout.
// It is safe for concurrent use: every call runs on a clone of the executor.
type CLI struct {
	executor exec.Executor
}

// NewCLI returns a CLI over the os/exec runner. Prompts are disabled and
// messages are forced to the C locale so stderr classification is stable.
func NewCLI() *CLI {
	return NewCLIWithExecutor(exec.New(
		exec.WithInheritEnv(),
		exec.WithEnv(map[string]string{
			"GIT_TERMINAL_PROMPT": "0",
			"LC_ALL":              "C",
		}),
	))
}

// NewCLIWithExecutor returns a CLI running git through executor.
func NewCLIWithExecutor(executor exec.Executor) *CLI {
	return &CLI{executor: executor}
}

// FetchOptions configures a fetch from a single remote ref.
type FetchOptions struct {
	// Remote defaults to "origin".
	Remote string

	// Ref is a branch, tag, commit hash or HEAD.
	Ref string

	// Depth truncates history; 0 fetches everything reachable.
	Depth int

	// Filter is a partial clone filter spec such as "blob:none".
	Filter string
}

func (c *CLI) git(ctx context.Context, dir string) exec.Executor {
	e := exec.NewWrapper(c.executor.Clone(), "git").WithContext(ctx)
	if dir != "" {
		e = e.WithDir(dir)
	}
	return e
}

func (c *CLI) run(ctx context.Context, dir, msg string, fallback platformerrors.ErrorCode, args ...string) (*exec.Result, error) {
	res, err := c.git(ctx, dir).Run(args...)
	if err != nil {
		return res, mapExecError(err, msg, fallback)
	}
	return res, nil
}

// Init creates an empty repository at dir.
func (c *CLI) Init(ctx context.Context, dir string) error {
	_, err := c.run(ctx, "", "failed to init repository", platformerrors.CodeFetchFailed, "init", "-q", dir)
	return err
}

// AddRemote registers url under name.
func (c *CLI) AddRemote(ctx context.Context, dir, name, url string) error {
	_, err := c.run(ctx, dir, "failed to add remote", platformerrors.CodeFetchFailed, "remote", "add", name, url)
	return err
}

// SetConfig sets a repository-local configuration value.
func (c *CLI) SetConfig(ctx context.Context, dir, key, value string) error {
	_, err := c.run(ctx, dir, "failed to set "+key, platformerrors.CodeExecutionFailed, "config", key, value)
	return err
}

// SparseCheckout restricts the worktree to the given repository-relative
// paths using non-cone patterns.
func (c *CLI) SparseCheckout(ctx context.Context, dir string, paths []string) error {
	args := []string{"sparse-checkout", "set", "--no-cone"}
	for _, p := range paths {
		args = append(args, "/"+strings.TrimPrefix(p, "/"))
	}
	_, err := c.run(ctx, dir, "failed to configure sparse checkout", platformerrors.CodeExecutionFailed, args...)
	return err
}

// Fetch fetches a single ref into FETCH_HEAD.
func (c *CLI) Fetch(ctx context.Context, dir string, opts FetchOptions) error {
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}

	args := []string{"fetch", "--quiet", "--no-tags"}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	if opts.Filter != "" {
		args = append(args, "--filter="+opts.Filter)
	}
	args = append(args, remote)
	if opts.Ref != "" {
		args = append(args, opts.Ref)
	}

	_, err := c.run(ctx, dir, "failed to fetch "+opts.Ref, platformerrors.CodeFetchFailed, args...)
	return err
}

// Checkout forcibly checks out rev with a detached HEAD.
func (c *CLI) Checkout(ctx context.Context, dir, rev string) error {
	_, err := c.run(ctx, dir, "failed to checkout "+rev, platformerrors.CodeFetchFailed,
		"-c", "advice.detachedHead=false", "checkout", "--quiet", "--force", rev)
	return err
}

// RevParse resolves rev to a full commit hash.
func (c *CLI) RevParse(ctx context.Context, dir, rev string) (string, error) {
	res, err := c.run(ctx, dir, "failed to resolve "+rev, platformerrors.CodeCommitMismatch,
		"rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}
