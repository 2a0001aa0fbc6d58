package gitlib

import (
	"context"
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Sentinel errors for revision resolution.
var (
	// ErrRevisionNotFound is returned when a revision spec does not resolve to a commit.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrNoMergeBase is returned when two commits share no common ancestor.
	ErrNoMergeBase = errors.New("no merge base")
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
}

// OpenRepository opens the git repository rooted at path.
// Subdirectories of a working tree are rejected; the path must be the root.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepositoryExtended(path, git2go.RepositoryOpenNoSearch, "")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo}, nil
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// ResolveCommit resolves a revision spec (branch, tag, "HEAD", sha, "HEAD~2", ...)
// and peels it to a commit.
func (r *Repository) ResolveCommit(_ context.Context, rev string) (*Commit, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrRevisionNotFound, rev, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a commit: %w", ErrRevisionNotFound, rev, err)
	}
	defer peeled.Free()

	commit, err := peeled.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a commit: %w", ErrRevisionNotFound, rev, err)
	}

	return &Commit{commit: commit}, nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit}, nil
}

// MergeBase returns the best common ancestor of two commits.
func (r *Repository) MergeBase(one, two Hash) (Hash, error) {
	oid, err := r.repo.MergeBase(one.ToOid(), two.ToOid())
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return Hash{}, fmt.Errorf("%w between %s and %s", ErrNoMergeBase, one.Short(), two.Short())
		}

		return Hash{}, fmt.Errorf("merge base: %w", err)
	}

	return HashFromOid(oid), nil
}

// DiffTreeToTree computes the diff between two trees.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree, opts DiffOptions) (*Diff, error) {
	nativeOpts, err := opts.native()
	if err != nil {
		return nil, err
	}

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &nativeOpts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return &Diff{diff: diff}, nil
}
