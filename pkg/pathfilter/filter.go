// Package pathfilter decides which changed files are left out of coverage judgment.
package pathfilter

import (
	"errors"
	"fmt"
	"regexp"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/src-d/enry/v2"
)

// ErrInvalidPattern is returned when an exclusion pattern is not a valid regular expression.
var ErrInvalidPattern = errors.New("invalid exclusion pattern")

// DefaultPatterns excludes top-level files and the conventional directories that
// hold tests, configuration, migrations, scripts and vendored code.
var DefaultPatterns = []string{
	`[^/]*$`,
	`test/`,
	`features/`,
	`spec/`,
	`autotest/`,
	`config/`,
	`db/`,
	`vendor/bundle/`,
	`script`,
	`vendor`,
}

// Options configures a Filter.
type Options struct {
	// Patterns replaces DefaultPatterns when non-nil. An empty non-nil slice
	// excludes nothing.
	Patterns []string
	// SkipVendored also excludes paths that enry recognises as vendored.
	SkipVendored bool
	// IgnoreFile is a gitignore-style file whose matches are excluded.
	IgnoreFile string
}

// Filter is a compiled set of exclusion rules. It is safe for concurrent use.
type Filter struct {
	patterns     []*regexp.Regexp
	skipVendored bool
	ignore       *ignore.GitIgnore
}

// New compiles opts into a Filter. Each pattern is anchored at the start of the
// path only, so it matches any path it is a prefix of.
func New(opts Options) (*Filter, error) {
	patterns := opts.Patterns
	if patterns == nil {
		patterns = DefaultPatterns
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}

		compiled = append(compiled, re)
	}

	filter := &Filter{patterns: compiled, skipVendored: opts.SkipVendored}

	if opts.IgnoreFile != "" {
		gi, err := ignore.CompileIgnoreFile(opts.IgnoreFile)
		if err != nil {
			return nil, fmt.Errorf("compile ignore file %s: %w", opts.IgnoreFile, err)
		}

		filter.ignore = gi
	}

	return filter, nil
}

// Excluded reports whether relativePath must not be judged.
func (f *Filter) Excluded(relativePath string) bool {
	for _, re := range f.patterns {
		if re.MatchString(relativePath) {
			return true
		}
	}

	if f.skipVendored && enry.IsVendor(relativePath) {
		return true
	}

	return f.ignore != nil && f.ignore.MatchesPath(relativePath)
}

// Excluded is the one-shot form of Filter.Excluded for an explicit pattern list.
func Excluded(relativePath string, patterns []string) (bool, error) {
	filter, err := New(Options{Patterns: patterns})
	if err != nil {
		return false, err
	}

	return filter.Excluded(relativePath), nil
}
