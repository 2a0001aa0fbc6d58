// Package render writes a coverage diff result in one of the supported
// output formats.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
)

// Output formats.
const (
	FormatText  = "text"
	FormatColor = "color"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for a format outside Formats().
var ErrUnknownFormat = errors.New("unknown output format")

const (
	statusCovered    = "covered"
	statusUncovered  = "uncovered"
	statusNoCoverage = "no coverage"
)

// Result is the part of a reporter a renderer reads.
type Result interface {
	Judges() []*coverdiff.FileCoverageDiff
	Summary() coverdiff.Summary
	ReportString() string
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatColor, FormatTable, FormatJSON, FormatYAML}
}

// ValidFormat reports whether format is supported.
func ValidFormat(format string) bool {
	return slices.Contains(Formats(), format)
}

// Render writes result to w in format.
func Render(w io.Writer, format string, result Result) error {
	var err error

	switch format {
	case FormatText:
		_, err = io.WriteString(w, result.ReportString())
	case FormatColor:
		err = renderColor(w, result.Judges())
	case FormatTable:
		err = renderTable(w, result)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(NewDocument(result))
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		err = errors.Join(encoder.Encode(NewDocument(result)), encoder.Close())
	default:
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}

	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	return nil
}

// Document is the machine-readable form of a result.
type Document struct {
	CompletelyCovered bool              `json:"completely_covered" yaml:"completely_covered"`
	Summary           coverdiff.Summary `json:"summary"            yaml:"summary"`
	Files             []FileDocument    `json:"files"              yaml:"files"`
}

// FileDocument is the verdict for one file.
type FileDocument struct {
	Path              string         `json:"path"               yaml:"path"`
	FullPath          string         `json:"full_path"          yaml:"full_path"`
	CoverageAvailable bool           `json:"coverage_available" yaml:"coverage_available"`
	Covered           bool           `json:"covered"            yaml:"covered"`
	UncoveredLines    []LineDocument `json:"uncovered_lines"    yaml:"uncovered_lines"`
}

// LineDocument is one uncovered addition.
type LineDocument struct {
	Line    int    `json:"line"    yaml:"line"`
	Content string `json:"content" yaml:"content"`
}

// NewDocument converts result into its machine-readable form.
func NewDocument(result Result) Document {
	summary := result.Summary()
	judges := result.Judges()

	doc := Document{
		CompletelyCovered: summary.CompletelyCovered,
		Summary:           summary,
		Files:             make([]FileDocument, 0, len(judges)),
	}

	for _, judge := range judges {
		uncovered := judge.UncoveredLines()
		lines := make([]LineDocument, 0, len(uncovered))

		for _, line := range uncovered {
			lines = append(lines, LineDocument{Line: line.LineNum, Content: line.Content})
		}

		doc.Files = append(doc.Files, FileDocument{
			Path:              judge.RelativePath(),
			FullPath:          judge.FullPath(),
			CoverageAvailable: judge.CoverageAvailable(),
			Covered:           judge.Covered(),
			UncoveredLines:    lines,
		})
	}

	return doc
}

func status(judge *coverdiff.FileCoverageDiff) string {
	switch {
	case !judge.CoverageAvailable():
		return statusNoCoverage
	case judge.Covered():
		return statusCovered
	default:
		return statusUncovered
	}
}

// renderColor writes the text rendering with ANSI colors forced on, whatever
// the terminal detection of fatih/color decided.
func renderColor(w io.Writer, judges []*coverdiff.FileCoverageDiff) error {
	bold := forced(color.Bold)
	green := forced(color.FgGreen)
	red := forced(color.FgRed)
	yellow := forced(color.FgYellow)

	var sb strings.Builder

	for _, judge := range judges {
		sb.WriteString(bold.Sprint(judge.RelativePath()))

		switch status(judge) {
		case statusNoCoverage:
			sb.WriteString("\n" + yellow.Sprint(coverdiff.NoCoverageMessage))
		case statusCovered:
			sb.WriteString("\n" + green.Sprint(coverdiff.FullyCoveredMessage))
		default:
			for _, line := range judge.UncoveredLines() {
				sb.WriteString("\n" + red.Sprint(strconv.Itoa(line.LineNum)+": "+line.Content))
			}
		}

		sb.WriteString(coverdiff.Separator)
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func forced(attr color.Attribute) *color.Color {
	c := color.New(attr)
	c.EnableColor()

	return c
}

func renderTable(w io.Writer, result Result) error {
	summary := result.Summary()

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Status", "Uncovered", "Lines"})

	for _, judge := range result.Judges() {
		uncovered := judge.UncoveredLines()
		lineNums := make([]string, 0, len(uncovered))

		for _, line := range uncovered {
			lineNums = append(lineNums, strconv.Itoa(line.LineNum))
		}

		tbl.AppendRow(table.Row{
			judge.RelativePath(),
			status(judge),
			humanize.Comma(int64(len(uncovered))),
			strings.Join(lineNums, ", "),
		})
	}

	verdict := "not covered"
	if summary.CompletelyCovered {
		verdict = "completely covered"
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %s files", humanize.Comma(int64(summary.Files))),
		verdict,
		humanize.Comma(int64(summary.UncoveredLines)),
		"",
	})

	_, err := io.WriteString(w, tbl.Render()+"\n")

	return err
}
