package render_test

import (
	"bytes"
	"encoding/json"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverage"
	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
	"github.com/Sumatoshi-tech/smackdown/pkg/diffwalk"
	"github.com/Sumatoshi-tech/smackdown/pkg/render"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

type fakeResult struct {
	judges []*coverdiff.FileCoverageDiff
}

func (f fakeResult) Judges() []*coverdiff.FileCoverageDiff { return f.judges }

func (f fakeResult) Summary() coverdiff.Summary {
	summary := coverdiff.Summary{Files: len(f.judges), CompletelyCovered: true}

	for _, judge := range f.judges {
		switch {
		case !judge.CoverageAvailable():
			summary.FilesWithoutCoverage++
			summary.CompletelyCovered = false
		case judge.Covered():
			summary.CoveredFiles++
		default:
			summary.UncoveredFiles++
			summary.CompletelyCovered = false
		}

		summary.UncoveredLines += len(judge.UncoveredLines())
	}

	return summary
}

func (f fakeResult) ReportString() string {
	var sb strings.Builder

	for _, judge := range f.judges {
		sb.WriteString(judge.String())
	}

	return sb.String()
}

func sampleResult() fakeResult {
	return fakeResult{judges: []*coverdiff.FileCoverageDiff{
		coverdiff.NewFileCoverageDiff("lib/foo.rb", "/repo/lib/foo.rb",
			coverage.Vector{coverage.Hit(1), coverage.Hit(0), coverage.NonExecutable()}, true,
			slices.Values([]diffwalk.AddedLine{
				{LineNo: 1, Text: "def foo\n"},
				{LineNo: 2, Text: "  raise\n"},
			})),
		coverdiff.NewFileCoverageDiff("lib/bar.rb", "/repo/lib/bar.rb",
			coverage.Vector{coverage.Hit(4)}, true,
			slices.Values([]diffwalk.AddedLine{{LineNo: 1, Text: "bar\n"}})),
		coverdiff.NewFileCoverageDiff("lib/new.rb", "/repo/lib/new.rb", nil, false, nil),
	}}
}

func TestValidFormat(t *testing.T) {
	t.Parallel()

	for _, format := range render.Formats() {
		assert.True(t, render.ValidFormat(format), format)
	}

	assert.False(t, render.ValidFormat("html"))
	assert.False(t, render.ValidFormat(""))
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.Render(&buf, "html", sampleResult())
	require.ErrorIs(t, err, render.ErrUnknownFormat)
	assert.Empty(t, buf.String())
}

func TestRender_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	result := sampleResult()
	require.NoError(t, render.Render(&buf, render.FormatText, result))

	assert.Equal(t, result.ReportString(), buf.String())
	assert.True(t, strings.HasPrefix(buf.String(), "lib/foo.rb\n2:   raise\n"+coverdiff.Separator))
}

func TestRender_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	result := sampleResult()
	require.NoError(t, render.Render(&buf, render.FormatColor, result))

	out := buf.String()
	assert.Contains(t, out, "\x1b[31m", "uncovered lines are red")
	assert.Contains(t, out, "\x1b[32m", "covered files are green")
	assert.Contains(t, out, "\x1b[33m", "files without coverage are yellow")
	assert.Equal(t, result.ReportString(), ansi.ReplaceAllString(out, ""))
}

func TestRender_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Render(&buf, render.FormatTable, sampleResult()))

	lines := strings.Split(buf.String(), "\n")

	var fooRow string

	for _, line := range lines {
		if strings.Contains(line, "lib/foo.rb") {
			fooRow = line
		}
	}

	require.NotEmpty(t, fooRow)
	assert.Contains(t, fooRow, "uncovered")
	assert.Contains(t, fooRow, "2")
	assert.Contains(t, buf.String(), "no coverage")
	assert.Contains(t, strings.ToLower(buf.String()), "total: 3 files")
}

func TestRender_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Render(&buf, render.FormatJSON, sampleResult()))

	var doc render.Document

	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.False(t, doc.CompletelyCovered)
	assert.Equal(t, 3, doc.Summary.Files)
	assert.Equal(t, 1, doc.Summary.FilesWithoutCoverage)
	require.Len(t, doc.Files, 3)
	assert.Equal(t, render.FileDocument{
		Path:              "lib/foo.rb",
		FullPath:          "/repo/lib/foo.rb",
		CoverageAvailable: true,
		Covered:           false,
		UncoveredLines:    []render.LineDocument{{Line: 2, Content: "  raise"}},
	}, doc.Files[0])
	assert.Contains(t, buf.String(), `"uncovered_lines": []`)
}

func TestRender_JSONEmptyResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Render(&buf, render.FormatJSON, fakeResult{}))

	assert.Contains(t, buf.String(), `"completely_covered": true`)
	assert.Contains(t, buf.String(), `"files": []`)
}

func TestRender_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Render(&buf, render.FormatYAML, sampleResult()))

	var doc render.Document

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, render.NewDocument(sampleResult()), doc)
	assert.Contains(t, buf.String(), "completely_covered: false")
	assert.Contains(t, buf.String(), "full_path: /repo/lib/bar.rb")
}
