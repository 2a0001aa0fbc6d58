// Package textutil holds text heuristics shared by the diff providers.
package textutil

import "strings"

// BinarySniffLength is the prefix scanned for a NUL byte, the same window git
// uses to classify blobs.
const BinarySniffLength = 8000

// IsBinary reports whether text looks binary: a NUL byte within its first
// BinarySniffLength bytes. Empty text is not binary.
func IsBinary(text string) bool {
	sniff := text[:min(len(text), BinarySniffLength)]

	return strings.IndexByte(sniff, 0) >= 0
}
