package coverage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
)

// Loader errors.
var (
	// ErrReportNotFound is returned when a local report path is missing or unreadable.
	ErrReportNotFound = errors.New("coverage report not found")
	// ErrSourceUnavailable is returned when a remote report cannot be fetched.
	ErrSourceUnavailable = errors.New("coverage source unavailable")
)

const lz4Suffix = ".lz4"

// Loader reads and parses coverage reports. The zero value is ready to use.
type Loader struct {
	// HTTPClient fetches remote reports. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Load fetches the payload described by src and parses it into an Index.
// Remote fetches are attempted once.
func (l Loader) Load(ctx context.Context, src Source) (Index, error) {
	err := src.Validate()
	if err != nil {
		return Index{}, err
	}

	data, err := l.read(ctx, src)
	if err != nil {
		return Index{}, err
	}

	l.logger().DebugContext(ctx, "coverage payload read",
		"source", src.Kind().String(),
		"size", humanize.Bytes(uint64(len(data))))

	return Parse(data)
}

// Load is a convenience wrapper around a zero Loader.
func Load(ctx context.Context, src Source) (Index, error) {
	return Loader{}.Load(ctx, src)
}

func (l Loader) read(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind() {
	case KindInline:
		return []byte(src.Inline), nil
	case KindURL:
		return l.fetch(ctx, src.Location)
	case KindFile:
		return readFile(src.Location)
	case KindNone:
	}

	return nil, ErrNoSource
}

func (l Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrSourceUnavailable, url, resp.Status)
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrSourceUnavailable, readErr)
	}

	return body, nil
}

// readFile treats any path that cannot be opened and read as a missing
// report. Only a corrupt lz4 stream is reported as a decoding failure.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReportNotFound, path, err)
	}

	if !strings.HasSuffix(path, lz4Suffix) {
		return data, nil
	}

	decoded, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decode coverage report %s: %w", path, err)
	}

	return decoded, nil
}

func (l Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}

	return slog.Default()
}
