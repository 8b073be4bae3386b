package git

import (
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Repository is a read-only view of a checkout produced by the CLI.
type Repository struct {
	path string
	repo *gogit.Repository
	fs   billy.Filesystem
}

// RepositoryOption configures Open.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	fs billy.Filesystem
}

// WithFilesystem sets the billy filesystem the repository is opened from.
// Defaults to the OS filesystem rooted at "/".
func WithFilesystem(fs billy.Filesystem) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.fs = fs
	}
}

// Open opens the non-bare repository at path.
func Open(path string, opts ...RepositoryOption) (*Repository, error) {
	options := &repositoryOptions{
		fs: osfs.New("/"),
	}
	for _, opt := range opts {
		opt(options)
	}

	scopedFs, err := options.fs.Chroot(path)
	if err != nil {
		return nil, wrapError(err, "failed to scope filesystem to path")
	}

	if _, err := scopedFs.Stat(".git"); err != nil {
		return nil, wrapError(gogit.ErrRepositoryNotExists, "failed to open repository")
	}

	dotGitFs, err := scopedFs.Chroot(".git")
	if err != nil {
		return nil, wrapError(err, "failed to scope filesystem to .git")
	}

	storage := filesystem.NewStorage(dotGitFs, cache.NewObjectLRUDefault())
	repo, err := gogit.Open(storage, scopedFs)
	if err != nil {
		return nil, wrapError(err, "failed to open repository")
	}

	return &Repository{
		path: path,
		repo: repo,
		fs:   scopedFs,
	}, nil
}

// Path returns the path the repository was opened at.
func (r *Repository) Path() string {
	return r.path
}

// Filesystem returns the worktree filesystem, scoped to the repository root.
func (r *Repository) Filesystem() billy.Filesystem {
	return r.fs
}

// Underlying returns the go-git repository.
func (r *Repository) Underlying() *gogit.Repository {
	return r.repo
}

// Head returns the commit hash HEAD points at.
func (r *Repository) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", wrapError(err, "failed to resolve HEAD")
	}
	return ref.Hash().String(), nil
}

// ResolveCommit resolves rev (a hash, hash prefix, branch or tag) to a commit
// hash present in the local object store.
func (r *Repository) ResolveCommit(rev string) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", wrapError(err, "failed to resolve revision "+rev)
	}
	return hash.String(), nil
}

// MatchesCommit reports whether hash equals want, where want may be an
// abbreviated hash.
func MatchesCommit(hash, want string) bool {
	hash = strings.ToLower(hash)
	want = strings.ToLower(want)
	return want != "" && strings.HasPrefix(hash, want)
}
