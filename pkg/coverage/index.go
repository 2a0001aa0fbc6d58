package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedReport is returned when a payload does not have the expected report shape.
var ErrMalformedReport = errors.New("malformed coverage report")

// maxReportedSchemaErrors caps how many schema violations end up in one error message.
const maxReportedSchemaErrors = 5

// reportSchema is the structural contract for coverage payloads.
const reportSchema = `{
  "type": "object",
  "required": ["files"],
  "properties": {
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["filename", "coverage"],
        "properties": {
          "filename": {"type": "string"},
          "coverage": {
            "type": "array",
            "items": {"type": ["number", "null"], "minimum": 0}
          }
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(reportSchema))
})

type reportFile struct {
	Filename string `json:"filename"`
	Coverage Vector `json:"coverage"`
}

type report struct {
	Files []reportFile `json:"files"`
}

// Index maps a file path, as written in the report, to its coverage vector.
// It is read-only once built.
type Index struct {
	vectors map[string]Vector
}

// NewIndex builds an index from an existing mapping. The map is copied.
func NewIndex(vectors map[string]Vector) Index {
	copied := make(map[string]Vector, len(vectors))
	for path, vector := range vectors {
		copied[path] = vector
	}

	return Index{vectors: copied}
}

// Lookup returns the vector recorded for path.
func (i Index) Lookup(path string) (Vector, bool) {
	vector, ok := i.vectors[path]

	return vector, ok
}

// Len returns the number of files in the index.
func (i Index) Len() int {
	return len(i.vectors)
}

// Parse validates a raw report payload and builds its index. Only the
// filename -> coverage mapping is kept; a repeated filename keeps the last entry.
func Parse(data []byte) (Index, error) {
	schema, err := compiledSchema()
	if err != nil {
		return Index{}, fmt.Errorf("compile report schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Index{}, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	if !result.Valid() {
		return Index{}, fmt.Errorf("%w: %s", ErrMalformedReport, describeSchemaErrors(result.Errors()))
	}

	var parsed report

	err = json.Unmarshal(data, &parsed)
	if err != nil {
		return Index{}, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	vectors := make(map[string]Vector, len(parsed.Files))
	for _, file := range parsed.Files {
		vectors[file.Filename] = file.Coverage
	}

	return Index{vectors: vectors}, nil
}

func describeSchemaErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, min(len(errs), maxReportedSchemaErrors))

	for i, resultErr := range errs {
		if i == maxReportedSchemaErrors {
			parts = append(parts, fmt.Sprintf("and %d more", len(errs)-i))

			break
		}

		parts = append(parts, resultErr.String())
	}

	return strings.Join(parts, "; ")
}
