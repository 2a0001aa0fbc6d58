package diffwalk

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/smackdown/pkg/textutil"
)

// FileContents is one file on both sides of an in-memory diff. An empty
// Before means the file is added; an empty After means it is deleted.
// Binary contents produce a hunkless binary patch.
type FileContents struct {
	Path   string
	Before string
	After  string
}

// MemoryProvider diffs in-memory file contents line by line. The refs of a
// request are ignored; ContextLines shapes the hunks.
type MemoryProvider struct {
	files []FileContents
}

// NewMemoryProvider returns a provider over files. Patches come out in path
// order, as git reports them.
func NewMemoryProvider(files ...FileContents) *MemoryProvider {
	sorted := slices.Clone(files)
	slices.SortStableFunc(sorted, func(a, b FileContents) int {
		return cmp.Compare(a.Path, b.Path)
	})

	return &MemoryProvider{files: sorted}
}

// Diff implements Provider.
func (p *MemoryProvider) Diff(ctx context.Context, req Request) (PatchSet, error) {
	req = req.WithDefaults()
	dmp := diffmatchpatch.New()
	patches := make([]Patch, 0, len(p.files))

	for _, file := range p.files {
		err := ctx.Err()
		if err != nil {
			return PatchSet{}, fmt.Errorf("diff %s: %w", file.Path, err)
		}

		if file.Before == file.After {
			continue
		}

		patch := Patch{
			OldPath: file.Path,
			NewPath: file.Path,
			Status:  fileStatus(file),
			Binary:  textutil.IsBinary(file.Before) || textutil.IsBinary(file.After),
		}

		if !patch.Binary {
			patch.Hunks = groupHunks(diffLines(dmp, file.Before, file.After), req.ContextLines)
		}

		patches = append(patches, patch)
	}

	return PatchSet{patches: patches}, nil
}

func fileStatus(file FileContents) Status {
	switch {
	case file.Before == "":
		return StatusAdded
	case file.After == "":
		return StatusDeleted
	default:
		return StatusModified
	}
}

// diffLines produces the full line sequence of a diff, numbering each line on
// the side(s) it exists on.
func diffLines(dmp *diffmatchpatch.DiffMatchPatch, before, after string) []Line {
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lineArray)

	var (
		lines        []Line
		oldNo, newNo int
	)

	for _, d := range diffs {
		for text := range strings.SplitAfterSeq(d.Text, "\n") {
			if text == "" {
				continue
			}

			line := Line{Text: text}

			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldNo++
				newNo++
				line.Origin, line.OldLineNo, line.NewLineNo = OriginContext, oldNo, newNo
			case diffmatchpatch.DiffInsert:
				newNo++
				line.Origin, line.NewLineNo = OriginAddition, newNo
			case diffmatchpatch.DiffDelete:
				oldNo++
				line.Origin, line.OldLineNo = OriginDeletion, oldNo
			}

			lines = append(lines, line)
		}
	}

	return lines
}

// groupHunks keeps changed lines plus up to contextLines unchanged lines on
// either side, and starts a new hunk wherever the kept runs are separated.
func groupHunks(lines []Line, contextLines int) []Hunk {
	keep := make([]bool, len(lines))

	last := -1
	for i, line := range lines {
		if line.Origin != OriginContext {
			last = i
		}

		keep[i] = last >= 0 && i-last <= contextLines
	}

	next := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Origin != OriginContext {
			next = i
		}

		keep[i] = keep[i] || (next >= 0 && next-i <= contextLines)
	}

	var (
		hunks   []Hunk
		current []Line
	)

	for i, line := range lines {
		if !keep[i] {
			if current != nil {
				hunks = append(hunks, newHunk(current))
				current = nil
			}

			continue
		}

		current = append(current, line)
	}

	if current != nil {
		hunks = append(hunks, newHunk(current))
	}

	return hunks
}

func newHunk(lines []Line) Hunk {
	var (
		oldStart, newStart int
		oldCount, newCount int
	)

	for _, line := range lines {
		if line.Origin != OriginAddition {
			oldCount++

			if oldStart == 0 {
				oldStart = line.OldLineNo
			}
		}

		if line.Origin != OriginDeletion {
			newCount++

			if newStart == 0 {
				newStart = line.NewLineNo
			}
		}
	}

	return Hunk{
		Header: fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount),
		Lines:  lines,
	}
}
