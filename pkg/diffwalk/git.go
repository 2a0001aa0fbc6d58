package diffwalk

import (
	"context"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/smackdown/pkg/gitlib"
)

// GitProvider diffs revisions of a libgit2 repository.
type GitProvider struct {
	repo *gitlib.Repository
}

// OpenGitProvider opens the repository rooted at path.
func OpenGitProvider(path string) (*GitProvider, error) {
	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	return &GitProvider{repo: repo}, nil
}

// Close releases the repository handle. It is safe to call more than once.
func (p *GitProvider) Close() {
	p.repo.Free()
}

// Diff resolves both refs, finds their merge base and diffs the merge-base
// tree against the head tree.
func (p *GitProvider) Diff(ctx context.Context, req Request) (PatchSet, error) {
	req = req.WithDefaults()

	files, err := p.diffFiles(ctx, req)
	if err != nil {
		return PatchSet{}, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	patches := make([]Patch, 0, len(files))
	for _, file := range files {
		patches = append(patches, convertFile(file))
	}

	return PatchSet{patches: patches}, nil
}

func (p *GitProvider) diffFiles(ctx context.Context, req Request) ([]gitlib.FileDiff, error) {
	head, err := p.repo.ResolveCommit(ctx, req.Head)
	if err != nil {
		return nil, err
	}
	defer head.Free()

	trunk, err := p.repo.ResolveCommit(ctx, req.MergeBase)
	if err != nil {
		return nil, err
	}
	defer trunk.Free()

	baseHash, err := p.repo.MergeBase(trunk.Hash(), head.Hash())
	if err != nil {
		return nil, err
	}

	base, err := p.repo.LookupCommit(ctx, baseHash)
	if err != nil {
		return nil, err
	}
	defer base.Free()

	baseTree, err := base.Tree()
	if err != nil {
		return nil, err
	}
	defer baseTree.Free()

	headTree, err := head.Tree()
	if err != nil {
		return nil, err
	}
	defer headTree.Free()

	diff, err := p.repo.DiffTreeToTree(baseTree, headTree, gitlib.DiffOptions{ContextLines: req.ContextLines})
	if err != nil {
		return nil, err
	}
	defer diff.Free()

	return diff.Files()
}

func convertFile(file gitlib.FileDiff) Patch {
	hunks := make([]Hunk, 0, len(file.Hunks))

	for _, hunk := range file.Hunks {
		lines := make([]Line, 0, len(hunk.Lines))
		for _, line := range hunk.Lines {
			lines = append(lines, Line{
				Origin:    convertOrigin(line.Origin),
				OldLineNo: max(line.OldLineNo, 0),
				NewLineNo: max(line.NewLineNo, 0),
				Text:      line.Content,
			})
		}

		hunks = append(hunks, Hunk{Header: hunk.Header, Lines: lines})
	}

	return Patch{
		OldPath: file.OldPath,
		NewPath: file.NewPath,
		Status:  convertStatus(file.Status),
		Binary:  file.Binary,
		Hunks:   hunks,
	}
}

func convertOrigin(origin gitlib.LineOrigin) Origin {
	switch origin {
	case gitlib.LineAddition:
		return OriginAddition
	case gitlib.LineDeletion:
		return OriginDeletion
	case gitlib.LineContext:
	}

	return OriginContext
}

func convertStatus(delta git2go.Delta) Status {
	switch delta {
	case git2go.DeltaAdded:
		return StatusAdded
	case git2go.DeltaDeleted:
		return StatusDeleted
	case git2go.DeltaModified:
		return StatusModified
	case git2go.DeltaRenamed:
		return StatusRenamed
	case git2go.DeltaCopied:
		return StatusCopied
	case git2go.DeltaTypeChange:
		return StatusTypeChange
	default:
		return StatusUnknown
	}
}
