package coverage

import (
	"errors"
	"path/filepath"
	"strings"
)

// Source errors.
var (
	// ErrConflictingSources is returned when both a location and inline data are given.
	ErrConflictingSources = errors.New(
		"Please pass only a coverage report location or inline coverage data, not both.")
	// ErrNoSource is returned when a source has neither a location nor inline data.
	ErrNoSource = errors.New("no coverage source configured")
)

// DefaultReportPath is the report location, relative to the repository root,
// used when no source is configured.
var DefaultReportPath = filepath.Join("coverage", "coverage.json")

// Kind identifies how a Source is loaded.
type Kind int

// Source kinds.
const (
	KindNone Kind = iota
	KindFile
	KindURL
	KindInline
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindURL:
		return "url"
	case KindInline:
		return "inline"
	case KindNone:
		return "none"
	}

	return "unknown"
}

// Source describes where a coverage report comes from. Exactly one of
// Location and Inline may be set.
type Source struct {
	// Location is a filesystem path or an http/https URL.
	Location string
	// Inline is a raw JSON report.
	Inline string
}

// DefaultSource returns the conventional report location inside repoRoot.
func DefaultSource(repoRoot string) Source {
	return Source{Location: filepath.Join(repoRoot, DefaultReportPath)}
}

// Validate checks that exactly one of Location and Inline is set.
func (s Source) Validate() error {
	switch {
	case s.Location != "" && s.Inline != "":
		return ErrConflictingSources
	case s.Location == "" && s.Inline == "":
		return ErrNoSource
	}

	return nil
}

// Kind classifies the source. Conflicting or empty sources are KindNone.
func (s Source) Kind() Kind {
	if s.Validate() != nil {
		return KindNone
	}

	if s.Inline != "" {
		return KindInline
	}

	if isRemote(s.Location) {
		return KindURL
	}

	return KindFile
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
