package git

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// DefaultBranch is the pseudo-branch naming the remote's default branch.
const DefaultBranch = "HEAD"

// RemoteOperations lists references of a remote without cloning it.
// The default implementation uses go-git; tests substitute a fake.
type RemoteOperations interface {
	// ListRefs returns the references the remote advertises, including a
	// symbolic HEAD when the server reports one.
	ListRefs(ctx context.Context, url string) ([]*plumbing.Reference, error)
}

type defaultRemoteOps struct{}

// DefaultRemote returns the go-git backed RemoteOperations.
func DefaultRemote() RemoteOperations {
	return &defaultRemoteOps{}
}

func (d *defaultRemoteOps) ListRefs(ctx context.Context, url string) ([]*plumbing.Reference, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	refs, err := remote.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return nil, wrapError(err, "failed to list remote references")
	}
	return refs, nil
}

// ResolveRemote returns the commit the remote's branch (or tag) currently
// points at. An empty branch or DefaultBranch resolves the remote HEAD.
func ResolveRemote(ctx context.Context, ops RemoteOperations, url, branch string) (string, error) {
	refs, err := ops.ListRefs(ctx, url)
	if err != nil {
		return "", err
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	var candidates []plumbing.ReferenceName
	if branch == "" || branch == DefaultBranch {
		candidates = []plumbing.ReferenceName{plumbing.HEAD}
	} else {
		candidates = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(branch),
			plumbing.NewTagReferenceName(branch),
			plumbing.ReferenceName(branch),
		}
	}

	for _, name := range candidates {
		ref, ok := byName[name]
		// Follow symbolic references (HEAD -> refs/heads/main) a bounded number of times.
		for depth := 0; ok && ref.Type() == plumbing.SymbolicReference && depth < 5; depth++ {
			ref, ok = byName[ref.Target()]
		}
		if ok && ref.Type() == plumbing.HashReference {
			return ref.Hash().String(), nil
		}
	}

	return "", platformerrors.WithContext(
		platformerrors.New(platformerrors.CodeFetchFailed, fmt.Sprintf("remote ref %q not found", branch)),
		"url", url,
	)
}
