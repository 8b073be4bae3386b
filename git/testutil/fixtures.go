// Package testutil builds source repositories for tests that fetch over file://.
package testutil

import (
	osexec "os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Test user information used for fixture commits.
const (
	// TestAuthor is the author name for test commits.
	TestAuthor = "Test User"

	// TestEmail is the author email for test commits.
	TestEmail = "test@example.com"
)

// Test repository URLs for key and config tests that never touch the network.
const (
	// TestRepoURL is a sample HTTPS repository URL.
	TestRepoURL = "https://github.com/test/repo.git"

	// TestRepoSSHURL is the SSH form of TestRepoURL.
	TestRepoSSHURL = "git@github.com:test/repo.git"
)

// GitAvailable reports whether the git binary is on PATH. Tests that drive
// the CLI skip when it is not.
func GitAvailable() bool {
	_, err := osexec.LookPath("git")
	return err == nil
}

// FileURL returns the file:// URL of a repository directory.
func FileURL(dir string) string {
	return "file://" + filepath.ToSlash(dir)
}

// NewSourceRepo initializes a non-bare repository at dir whose default branch is main.
func NewSourceRepo(dir string) (*gogit.Repository, error) {
	//nolint:wrapcheck // Test utility - errors from go-git are transparent
	return gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
}

// CommitFiles writes files (path -> content) into the worktree, stages them
// and commits. It returns the new commit hash.
func CommitFiles(repo *gogit.Repository, files map[string]string, message string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		//nolint:wrapcheck // Test utility - errors from go-git are transparent
		return "", err
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := util.WriteFile(wt.Filesystem, p, []byte(files[p]), 0o644); err != nil {
			//nolint:wrapcheck // Test utility - simple file operation error
			return "", err
		}
		if _, err := wt.Add(p); err != nil {
			//nolint:wrapcheck // Test utility - errors from go-git are transparent
			return "", err
		}
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  TestAuthor,
			Email: TestEmail,
			When:  time.Now(),
		},
		AllowEmptyCommits: len(files) == 0,
	})
	if err != nil {
		//nolint:wrapcheck // Test utility - errors from go-git are transparent
		return "", err
	}
	return hash.String(), nil
}

// CreateBranch points a new branch at commit.
func CreateBranch(repo *gogit.Repository, name, commit string) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(commit))
	//nolint:wrapcheck // Test utility - errors from go-git are transparent
	return repo.Storer.SetReference(ref)
}
