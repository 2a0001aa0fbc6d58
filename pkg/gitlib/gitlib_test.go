package gitlib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/smackdown/pkg/gitlib"
	"github.com/Sumatoshi-tech/smackdown/pkg/gitlib/gitlibtest"
)

const wholeFileContext = 10000

// forkedRepo builds master -> feature, then advances master independently.
func forkedRepo(t *testing.T) (*gitlibtest.TestRepo, gitlib.Hash) {
	t.Helper()

	tr := gitlibtest.NewTestRepo(t)
	base := tr.Commit("master", "initial", map[string]string{
		"lib/a.rb": "one\ntwo\nthree\n",
	})

	tr.Branch("feature", "master")
	tr.Commit("feature", "feature work", map[string]string{
		"lib/a.rb": "one\ntwo\nadded\nthree\n",
		"lib/b.rb": "brand new\n",
	})
	tr.Commit("master", "trunk work", map[string]string{
		"lib/a.rb": "one\ntwo\nthree\n",
		"lib/c.rb": "only on master\n",
	})

	return tr, base
}

func openRepo(t *testing.T, path string) *gitlib.Repository {
	t.Helper()

	repo, err := gitlib.OpenRepository(path)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return repo
}

func TestOpenRepository(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	tr.Commit("master", "initial", map[string]string{"test.txt": "content"})

	repo := openRepo(t, tr.Path)

	commit, err := repo.ResolveCommit(context.Background(), "master")
	require.NoError(t, err)

	defer commit.Free()

	assert.False(t, commit.Hash().IsZero())
}

func TestOpenRepositoryNotFound(t *testing.T) {
	t.Parallel()

	repo, err := gitlib.OpenRepository("/nonexistent/path/to/repo")

	assert.Nil(t, repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}

func TestOpenRepositoryRejectsSubdirectory(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	sub := filepath.Join(tr.Path, "lib")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	_, err := gitlib.OpenRepository(sub)
	require.Error(t, err)
}

func TestRepositoryFree(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	tr.Commit("master", "init", map[string]string{"x.txt": "x"})

	repo, err := gitlib.OpenRepository(tr.Path)
	require.NoError(t, err)

	// Free multiple times should be safe.
	repo.Free()
	repo.Free()
}

func TestResolveCommit(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	first := tr.Commit("master", "first", map[string]string{"a": "1"})
	second := tr.Commit("master", "second", map[string]string{"a": "2"})

	repo := openRepo(t, tr.Path)
	ctx := context.Background()

	tests := []struct {
		rev  string
		want gitlib.Hash
	}{
		{rev: "master", want: second},
		{rev: "refs/heads/master", want: second},
		{rev: "master~1", want: first},
		{rev: first.String(), want: first},
	}

	for _, tt := range tests {
		commit, err := repo.ResolveCommit(ctx, tt.rev)
		require.NoError(t, err, tt.rev)

		assert.Equal(t, tt.want, commit.Hash(), tt.rev)
		commit.Free()
	}
}

func TestResolveCommitHEAD(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	tip := tr.Commit("work", "first", map[string]string{"a": "1"})
	tr.Checkout("work")

	repo := openRepo(t, tr.Path)

	commit, err := repo.ResolveCommit(context.Background(), "HEAD")
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, tip, commit.Hash())
}

func TestResolveCommitUnknown(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	tr.Commit("master", "first", map[string]string{"a": "1"})

	repo := openRepo(t, tr.Path)

	_, err := repo.ResolveCommit(context.Background(), "no-such-branch")
	require.ErrorIs(t, err, gitlib.ErrRevisionNotFound)
}

func TestMergeBase(t *testing.T) {
	t.Parallel()

	tr, base := forkedRepo(t)
	repo := openRepo(t, tr.Path)
	ctx := context.Background()

	master, err := repo.ResolveCommit(ctx, "master")
	require.NoError(t, err)

	defer master.Free()

	feature, err := repo.ResolveCommit(ctx, "feature")
	require.NoError(t, err)

	defer feature.Free()

	mergeBase, err := repo.MergeBase(master.Hash(), feature.Hash())
	require.NoError(t, err)
	assert.Equal(t, base, mergeBase)
}

func TestMergeBaseUnrelatedHistories(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	one := tr.Commit("one", "root one", map[string]string{"a": "1"})
	two := tr.Commit("two", "root two", map[string]string{"b": "2"})

	repo := openRepo(t, tr.Path)

	_, err := repo.MergeBase(one, two)
	require.ErrorIs(t, err, gitlib.ErrNoMergeBase)
}

func TestDiffTreeToTreeFiles(t *testing.T) {
	t.Parallel()

	tr, base := forkedRepo(t)
	repo := openRepo(t, tr.Path)
	ctx := context.Background()

	baseCommit, err := repo.LookupCommit(ctx, base)
	require.NoError(t, err)

	defer baseCommit.Free()

	head, err := repo.ResolveCommit(ctx, "feature")
	require.NoError(t, err)

	defer head.Free()

	oldTree, err := baseCommit.Tree()
	require.NoError(t, err)

	defer oldTree.Free()

	newTree, err := head.Tree()
	require.NoError(t, err)

	defer newTree.Free()

	diff, err := repo.DiffTreeToTree(oldTree, newTree, gitlib.DiffOptions{ContextLines: wholeFileContext})
	require.NoError(t, err)

	defer diff.Free()

	files, err := diff.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)

	modified := files[0]
	assert.Equal(t, "lib/a.rb", modified.NewPath)
	assert.Equal(t, git2go.DeltaModified, modified.Status)
	require.Len(t, modified.Hunks, 1)

	lines := modified.Hunks[0].Lines
	require.Len(t, lines, 4)
	assert.Equal(t, gitlib.LineContext, lines[0].Origin)
	assert.Equal(t, gitlib.LineAddition, lines[2].Origin)
	assert.Equal(t, 3, lines[2].NewLineNo)
	assert.Equal(t, "added\n", lines[2].Content)
	assert.Equal(t, 4, lines[3].NewLineNo)

	added := files[1]
	assert.Equal(t, "lib/b.rb", added.NewPath)
	assert.Equal(t, git2go.DeltaAdded, added.Status)
	require.Len(t, added.Hunks, 1)
	assert.Equal(t, gitlib.LineAddition, added.Hunks[0].Lines[0].Origin)
	assert.Equal(t, 1, added.Hunks[0].Lines[0].NewLineNo)
}

func TestDiffContextLinesLimitHunks(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewTestRepo(t)
	before := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	after := "1\nA\n3\n4\n5\n6\n7\n8\nB\n10\n"
	base := tr.Commit("master", "before", map[string]string{"f.txt": before})
	tip := tr.Commit("master", "after", map[string]string{"f.txt": after})

	repo := openRepo(t, tr.Path)
	ctx := context.Background()

	files := diffCommits(t, repo, ctx, base, tip, 0)
	require.Len(t, files, 1)
	assert.Len(t, files[0].Hunks, 2)

	files = diffCommits(t, repo, ctx, base, tip, wholeFileContext)
	require.Len(t, files, 1)
	assert.Len(t, files[0].Hunks, 1)
}

func diffCommits(
	t *testing.T, repo *gitlib.Repository, ctx context.Context, from, to gitlib.Hash, contextLines int,
) []gitlib.FileDiff {
	t.Helper()

	fromCommit, err := repo.LookupCommit(ctx, from)
	require.NoError(t, err)

	defer fromCommit.Free()

	toCommit, err := repo.LookupCommit(ctx, to)
	require.NoError(t, err)

	defer toCommit.Free()

	fromTree, err := fromCommit.Tree()
	require.NoError(t, err)

	defer fromTree.Free()

	toTree, err := toCommit.Tree()
	require.NoError(t, err)

	defer toTree.Free()

	diff, err := repo.DiffTreeToTree(fromTree, toTree, gitlib.DiffOptions{ContextLines: contextLines})
	require.NoError(t, err)

	defer diff.Free()

	files, err := diff.Files()
	require.NoError(t, err)

	return files
}
