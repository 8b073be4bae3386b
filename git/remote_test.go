package git

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/testutil"
)

type fakeRemote struct {
	refs []*plumbing.Reference
	err  error
	urls []string
}

func (f *fakeRemote) ListRefs(_ context.Context, url string) ([]*plumbing.Reference, error) {
	f.urls = append(f.urls, url)
	return f.refs, f.err
}

func TestResolveRemote(t *testing.T) {
	mainHash := plumbing.NewHash("1111111111111111111111111111111111111111")
	devHash := plumbing.NewHash("2222222222222222222222222222222222222222")
	tagHash := plumbing.NewHash("3333333333333333333333333333333333333333")

	remote := &fakeRemote{refs: []*plumbing.Reference{
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main")),
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), mainHash),
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("dev"), devHash),
		plumbing.NewHashReference(plumbing.NewTagReferenceName("v1.0.0"), tagHash),
	}}

	tests := []struct {
		branch string
		want   string
	}{
		{"", mainHash.String()},
		{DefaultBranch, mainHash.String()},
		{"main", mainHash.String()},
		{"dev", devHash.String()},
		{"v1.0.0", tagHash.String()},
	}

	for _, tt := range tests {
		t.Run("branch "+tt.branch, func(t *testing.T) {
			got, err := ResolveRemote(context.Background(), remote, "https://example.com/repo.git", tt.branch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown branch", func(t *testing.T) {
		_, err := ResolveRemote(context.Background(), remote, "https://example.com/repo.git", "missing")
		assert.True(t, platformerrors.HasCode(err, platformerrors.CodeFetchFailed))
	})

	t.Run("list failure", func(t *testing.T) {
		failing := &fakeRemote{err: errors.New("connection refused")}
		_, err := ResolveRemote(context.Background(), failing, "https://example.com/repo.git", "main")
		assert.Error(t, err)
	})
}

func TestDefaultRemoteListsLocalRepository(t *testing.T) {
	if !testutil.GitAvailable() {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	repo, err := testutil.NewSourceRepo(dir)
	require.NoError(t, err)
	hash, err := testutil.CommitFiles(repo, map[string]string{"a.txt": "a"}, "init")
	require.NoError(t, err)

	got, err := ResolveRemote(context.Background(), DefaultRemote(), testutil.FileURL(dir), "main")
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}
