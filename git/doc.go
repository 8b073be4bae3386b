// Package git is the checkout primitive behind gitwire.
//
// Reads go through go-git: opening a checkout, resolving HEAD or a revision,
// and listing remote references (ls-remote). Writes that go-git cannot express
// (partial clone filters, sparse checkout, depth-1 fetch of an arbitrary
// commit) go through the git CLI via the exec package.
//
// # Reading a checkout
//
//	repo, err := git.Open("/tmp/git-wire-cache/github.com/org/repo/main/checkout")
//	if err != nil {
//	    return err
//	}
//	head, err := repo.Head()
//
// # Resolving a remote branch
//
//	commit, err := git.ResolveRemote(ctx, git.DefaultRemote(), url, "main")
//
// # Driving the CLI
//
//	cli := git.NewCLI()
//	err := cli.Init(ctx, dir)
//	err = cli.Fetch(ctx, dir, git.FetchOptions{Ref: "main", Depth: 1})
//	err = cli.Checkout(ctx, dir, "FETCH_HEAD")
//
// # Errors
//
// go-git sentinels and git CLI stderr are classified into error codes from
// the errors package: unreachable or missing remotes become CodeFetchFailed,
// unknown revisions CodeCommitMismatch, expired contexts CodeFetchTimeout.
package git
