package coverdiff

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverage"
	"github.com/Sumatoshi-tech/smackdown/pkg/diffwalk"
)

// Markers of the default text report.
const (
	NoCoverageMessage   = "No coverage for this file!"
	FullyCoveredMessage = "100% covered!"

	// Separator terminates every file block: a newline, 40 dashes, a newline.
	Separator = "\n----------------------------------------\n"

	uncoveredLineDivider = ": "
)

// UncoveredLine is an added line that coverage saw as executable but never run.
type UncoveredLine struct {
	LineNum int
	Content string
}

// FileCoverageDiff is the verdict for one changed file. It is immutable.
type FileCoverageDiff struct {
	relativePath      string
	fullPath          string
	coverageAvailable bool
	uncoveredLines    []UncoveredLine
}

// NewFileCoverageDiff judges the added lines of one file against its coverage
// vector. When ok is false the file has no coverage and added is not read.
func NewFileCoverageDiff(
	relativePath, fullPath string, vector coverage.Vector, ok bool, added iter.Seq[diffwalk.AddedLine],
) *FileCoverageDiff {
	judge := &FileCoverageDiff{
		relativePath:      relativePath,
		fullPath:          fullPath,
		coverageAvailable: ok,
	}

	if !ok {
		return judge
	}

	for line := range added {
		if !vector.At(line.LineNo).Uncovered() {
			continue
		}

		judge.uncoveredLines = append(judge.uncoveredLines, UncoveredLine{
			LineNum: line.LineNo,
			Content: strings.ReplaceAll(line.Text, "\n", ""),
		})
	}

	return judge
}

// RelativePath returns the path relative to the repository root.
func (f *FileCoverageDiff) RelativePath() string {
	return f.relativePath
}

// FullPath returns the path looked up in the coverage report.
func (f *FileCoverageDiff) FullPath() string {
	return f.fullPath
}

// CoverageAvailable reports whether the coverage report has an entry for the file.
func (f *FileCoverageDiff) CoverageAvailable() bool {
	return f.coverageAvailable
}

// UncoveredLines returns the uncovered added lines in file order.
func (f *FileCoverageDiff) UncoveredLines() []UncoveredLine {
	return slices.Clone(f.uncoveredLines)
}

// Covered reports whether coverage exists and every added line ran.
// A file without coverage is never covered.
func (f *FileCoverageDiff) Covered() bool {
	return f.coverageAvailable && len(f.uncoveredLines) == 0
}

// String renders the file block of the default text report.
func (f *FileCoverageDiff) String() string {
	var sb strings.Builder

	sb.WriteString(f.relativePath)

	switch {
	case !f.coverageAvailable:
		sb.WriteString("\n" + NoCoverageMessage)
	case len(f.uncoveredLines) == 0:
		sb.WriteString("\n" + FullyCoveredMessage)
	default:
		for _, line := range f.uncoveredLines {
			sb.WriteString("\n")
			sb.WriteString(strconv.Itoa(line.LineNum))
			sb.WriteString(uncoveredLineDivider)
			sb.WriteString(line.Content)
		}
	}

	sb.WriteString(Separator)

	return sb.String()
}
