// Package coverage loads line-coverage reports and normalizes them into an
// index of per-file hit-count vectors.
package coverage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidEntry is returned when a coverage entry is neither null nor a non-negative number.
var ErrInvalidEntry = errors.New("invalid coverage entry")

var jsonNull = []byte("null")

// Entry is the coverage state of a single source line: either a hit count or
// non-executable. The zero value is non-executable.
type Entry struct {
	hits       float64
	executable bool
}

// Hit returns an executable entry that ran count times.
func Hit(count float64) Entry {
	return Entry{hits: count, executable: true}
}

// NonExecutable returns an entry for a line the instrumentation does not track.
func NonExecutable() Entry {
	return Entry{}
}

// Executable reports whether the line is instrumented.
func (e Entry) Executable() bool {
	return e.executable
}

// Hits returns the hit count and whether the line is executable.
func (e Entry) Hits() (float64, bool) {
	return e.hits, e.executable
}

// Uncovered reports whether the line is executable and was never run.
// Any count below one counts as not run; fractional counts of one or more never do.
func (e Entry) Uncovered() bool {
	return e.executable && e.hits < 1
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	if !e.executable {
		return "-"
	}

	return strconv.FormatFloat(e.hits, 'f', -1, 64)
}

// UnmarshalJSON decodes null as non-executable and numbers as hit counts.
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, jsonNull) {
		*e = NonExecutable()

		return nil
	}

	var count float64

	err := json.Unmarshal(trimmed, &count)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEntry, trimmed)
	}

	if count < 0 {
		return fmt.Errorf("%w: negative hit count %s", ErrInvalidEntry, trimmed)
	}

	*e = Hit(count)

	return nil
}

// MarshalJSON encodes the entry back into the report shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	if !e.executable {
		return jsonNull, nil
	}

	return json.Marshal(e.hits)
}

// Vector holds per-line entries for one file; index i is source line i+1.
type Vector []Entry

// At returns the entry for a 1-based line number. Lines outside the vector
// are non-executable.
func (v Vector) At(lineNo int) Entry {
	if lineNo < 1 || lineNo > len(v) {
		return NonExecutable()
	}

	return v[lineNo-1]
}
