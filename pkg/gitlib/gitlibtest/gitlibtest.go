// Package gitlibtest builds throwaway git repositories for tests.
package gitlibtest

import (
	"sort"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/smackdown/pkg/gitlib"
)

const refsHeadsPrefix = "refs/heads/"

// TestRepo is a scratch repository. Commits are written from
// explicit file snapshots straight into the object database, so the working
// tree is never touched and branches can be built independently.
type TestRepo struct {
	Path string

	t      testing.TB
	native *git2go.Repository
}

// NewTestRepo initializes an empty non-bare repository in a temp directory.
// The repository is freed when the test ends.
func NewTestRepo(t testing.TB) *TestRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &TestRepo{Path: dir, t: t, native: repo}
}

// Commit records a commit on branch whose tree is exactly files (path -> content).
// The branch tip, if any, becomes the parent. The branch is created when missing.
func (tr *TestRepo) Commit(branch, message string, files map[string]string) gitlib.Hash {
	tr.t.Helper()

	index, err := git2go.NewIndex()
	require.NoError(tr.t, err)

	defer index.Free()

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	for _, path := range paths {
		blobID, blobErr := tr.native.CreateBlobFromBuffer([]byte(files[path]))
		require.NoError(tr.t, blobErr)

		addErr := index.Add(&git2go.IndexEntry{
			Mode: git2go.FilemodeBlob,
			Size: uint32(len(files[path])), //nolint:gosec // test fixtures are tiny
			Id:   blobID,
			Path: path,
		})
		require.NoError(tr.t, addErr)
	}

	treeID, err := index.WriteTreeTo(tr.native)
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  time.Now(),
	}

	var parents []*git2go.Commit

	ref, err := tr.native.References.Lookup(refsHeadsPrefix + branch)
	if err == nil {
		parent, lookupErr := tr.native.LookupCommit(ref.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, parent)

		ref.Free()
	}

	oid, err := tr.native.CreateCommit(refsHeadsPrefix+branch, sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// Branch creates branch name pointing at the tip of from.
func (tr *TestRepo) Branch(name, from string) gitlib.Hash {
	tr.t.Helper()

	src, err := tr.native.References.Lookup(refsHeadsPrefix + from)
	require.NoError(tr.t, err)

	defer src.Free()

	ref, err := tr.native.References.Create(refsHeadsPrefix+name, src.Target(), false, "branch: Created from "+from)
	require.NoError(tr.t, err)

	defer ref.Free()

	return gitlib.HashFromOid(ref.Target())
}

// Checkout points HEAD at branch without touching the working tree.
func (tr *TestRepo) Checkout(branch string) {
	tr.t.Helper()

	require.NoError(tr.t, tr.native.SetHead(refsHeadsPrefix+branch))
}
