// Package diffwalk turns a version-control diff into immutable per-file patches
// and exposes the lines each patch adds.
package diffwalk

import (
	"iter"
	"slices"
)

// Origin tags a diff line as added, removed or unchanged.
type Origin int

// Line origins.
const (
	OriginContext Origin = iota
	OriginAddition
	OriginDeletion
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	switch o {
	case OriginContext:
		return "context"
	case OriginAddition:
		return "addition"
	case OriginDeletion:
		return "deletion"
	}

	return "unknown"
}

// Status is the kind of change a patch describes.
type Status int

// Patch statuses.
const (
	StatusUnknown Status = iota
	StatusAdded
	StatusDeleted
	StatusModified
	StatusRenamed
	StatusCopied
	StatusTypeChange
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusModified:
		return "modified"
	case StatusRenamed:
		return "renamed"
	case StatusCopied:
		return "copied"
	case StatusTypeChange:
		return "typechange"
	case StatusUnknown:
	}

	return "unknown"
}

// Line is one line of a hunk. NewLineNo is 1-based and zero for deletions;
// OldLineNo is zero for additions. Text keeps its trailing newline.
type Line struct {
	Origin    Origin
	OldLineNo int
	NewLineNo int
	Text      string
}

// Hunk is a contiguous block of lines.
type Hunk struct {
	Header string
	Lines  []Line
}

// AddedLine is a line present only on the head side.
type AddedLine struct {
	LineNo int
	Text   string
}

// Patch is the diff of one file.
type Patch struct {
	OldPath string
	NewPath string
	Status  Status
	Binary  bool
	Hunks   []Hunk
}

// Path returns the file path on the head side, relative to the repository root.
// Deleted files report their old path.
func (p Patch) Path() string {
	if p.NewPath == "" {
		return p.OldPath
	}

	return p.NewPath
}

// AddedLines yields the patch's additions in file order.
func (p Patch) AddedLines() iter.Seq[AddedLine] {
	return func(yield func(AddedLine) bool) {
		for _, hunk := range p.Hunks {
			for _, line := range hunk.Lines {
				if line.Origin != OriginAddition {
					continue
				}

				if !yield(AddedLine{LineNo: line.NewLineNo, Text: line.Text}) {
					return
				}
			}
		}
	}
}

// PatchSet is the ordered, immutable result of one diff computation.
type PatchSet struct {
	patches []Patch
}

// NewPatchSet returns a patch set holding a copy of patches.
func NewPatchSet(patches ...Patch) PatchSet {
	return PatchSet{patches: slices.Clone(patches)}
}

// Len returns the number of patches.
func (s PatchSet) Len() int {
	return len(s.patches)
}

// Patches yields the patches in diff order.
func (s PatchSet) Patches() iter.Seq[Patch] {
	return slices.Values(s.patches)
}
