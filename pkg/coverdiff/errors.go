package coverdiff

import (
	"errors"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverage"
	"github.com/Sumatoshi-tech/smackdown/pkg/diffwalk"
)

// Error classes. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	// ErrConfiguration marks invalid options and malformed coverage payloads.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a local coverage report that does not exist.
	ErrNotFound = coverage.ErrReportNotFound
	// ErrSourceUnavailable marks a remote coverage report that could not be fetched.
	ErrSourceUnavailable = coverage.ErrSourceUnavailable
	// ErrRepository marks an invalid repository, an unknown ref or a missing merge base.
	ErrRepository = diffwalk.ErrRepository
)

// ConfigurationError is a caller mistake detected before any work is done.
type ConfigurationError struct {
	Message string
	Err     error
}

// Error returns the message alone so it can be shown to users verbatim.
func (e *ConfigurationError) Error() string {
	return e.Message
}

// Unwrap exposes ErrConfiguration and the underlying cause.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}

	return []error{ErrConfiguration, e.Err}
}

func configurationError(err error) *ConfigurationError {
	return &ConfigurationError{Message: err.Error(), Err: err}
}
