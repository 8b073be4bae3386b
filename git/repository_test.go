package git

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/testutil"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	src, err := testutil.NewSourceRepo(dir)
	require.NoError(t, err)
	first, err := testutil.CommitFiles(src, map[string]string{"README.md": "one"}, "first")
	require.NoError(t, err)
	second, err := testutil.CommitFiles(src, map[string]string{"README.md": "two"}, "second")
	require.NoError(t, err)

	repo, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, repo.Path())

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head)

	resolved, err := repo.ResolveCommit(first[:12])
	require.NoError(t, err)
	assert.Equal(t, first, resolved)

	_, err = repo.Filesystem().Stat("README.md")
	assert.NoError(t, err)
	assert.NotNil(t, repo.Underlying())
}

func TestOpenMissingRepository(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))

	_, err := Open("/empty", WithFilesystem(fs))
	require.Error(t, err)
	assert.True(t, platformerrors.HasCode(err, platformerrors.CodeCacheCorrupted))
}

func TestMatchesCommit(t *testing.T) {
	full := "0123456789abcdef0123456789abcdef01234567"
	assert.True(t, MatchesCommit(full, full))
	assert.True(t, MatchesCommit(full, "0123456"))
	assert.True(t, MatchesCommit(full, "0123456789ABCDEF"))
	assert.False(t, MatchesCommit(full, "fedcba9"))
	assert.False(t, MatchesCommit(full, ""))
}
