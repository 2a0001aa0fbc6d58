package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/smackdown/pkg/safeconv"
)

// initialHunkCapacity is the initial capacity for per-file hunk slices.
const initialHunkCapacity = 4

// DiffOptions configures a tree-to-tree diff.
type DiffOptions struct {
	// ContextLines is the number of unchanged lines kept around each change.
	ContextLines int
}

func (o DiffOptions) native() (git2go.DiffOptions, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return git2go.DiffOptions{}, fmt.Errorf("get diff options: %w", err)
	}

	opts.ContextLines = safeconv.ClampIntToUint32(o.ContextLines)

	return opts, nil
}

// LineOrigin identifies whether a diff line was added, removed or kept.
type LineOrigin int

const (
	// LineContext is an unchanged line.
	LineContext LineOrigin = iota
	// LineAddition is a line present only in the new file.
	LineAddition
	// LineDeletion is a line present only in the old file.
	LineDeletion
)

// DiffLine is one line of a hunk.
type DiffLine struct {
	Origin    LineOrigin
	OldLineNo int
	NewLineNo int
	Content   string
}

// DiffHunk is a contiguous block of changed and context lines.
type DiffHunk struct {
	Header   string
	OldStart int
	NewStart int
	Lines    []DiffLine
}

// FileDiff is the full line-level diff of one changed file.
type FileDiff struct {
	Status  git2go.Delta
	OldPath string
	NewPath string
	Binary  bool
	Hunks   []DiffHunk
}

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// NumDeltas returns the number of deltas in the diff.
func (d *Diff) NumDeltas() (int, error) {
	numDeltas, err := d.diff.NumDeltas()
	if err != nil {
		return 0, fmt.Errorf("get num deltas: %w", err)
	}

	return numDeltas, nil
}

// Files walks the whole diff and returns every file with its hunks and lines,
// in the order libgit2 reports them.
func (d *Diff) Files() ([]FileDiff, error) {
	numDeltas, err := d.NumDeltas()
	if err != nil {
		return nil, err
	}

	files := make([]FileDiff, 0, numDeltas)

	fileCallback := func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		files = append(files, FileDiff{
			Status:  delta.Status,
			OldPath: delta.OldFile.Path,
			NewPath: delta.NewFile.Path,
			Binary:  delta.Flags&git2go.DiffFlagBinary != 0,
			Hunks:   make([]DiffHunk, 0, initialHunkCapacity),
		})
		file := &files[len(files)-1]

		return func(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			file.Hunks = append(file.Hunks, DiffHunk{
				Header:   hunk.Header,
				OldStart: hunk.OldStart,
				NewStart: hunk.NewStart,
			})
			current := &file.Hunks[len(file.Hunks)-1]

			return func(line git2go.DiffLine) error {
				origin, ok := convertOrigin(line.Origin)
				if !ok {
					return nil
				}

				current.Lines = append(current.Lines, DiffLine{
					Origin:    origin,
					OldLineNo: line.OldLineno,
					NewLineNo: line.NewLineno,
					Content:   line.Content,
				})

				return nil
			}, nil
		}, nil
	}

	err = d.diff.ForEach(fileCallback, git2go.DiffDetailLines)
	if err != nil {
		return nil, fmt.Errorf("diff foreach: %w", err)
	}

	return files, nil
}

// convertOrigin maps libgit2 line origins onto LineOrigin.
// EOF-newline markers, headers and binary markers are not source lines.
func convertOrigin(origin git2go.DiffLineType) (LineOrigin, bool) {
	switch origin {
	case git2go.DiffLineContext:
		return LineContext, true
	case git2go.DiffLineAddition:
		return LineAddition, true
	case git2go.DiffLineDeletion:
		return LineDeletion, true
	case git2go.DiffLineContextEOFNL,
		git2go.DiffLineAddEOFNL,
		git2go.DiffLineDelEOFNL,
		git2go.DiffLineFileHdr,
		git2go.DiffLineHunkHdr,
		git2go.DiffLineBinary:
		return 0, false
	}

	return 0, false
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	err := d.diff.Free()
	d.diff = nil
	// Consume error - Free() errors are non-actionable in cleanup.
	if err != nil {
		return
	}
}
