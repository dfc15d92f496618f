// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSource means a configured artifact could not be read.
	ErrMissingSource = errors.New("missing source")
	// ErrMalformedArtifact means an artifact could not be parsed into a
	// supported shape.
	ErrMalformedArtifact = errors.New("malformed artifact")
)

// SourceError records a source that contributed nothing to the pool.
type SourceError struct {
	SourceID string
	Path     string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q (%s): %v", e.SourceID, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Reason is a stable label for logs and reports.
func (e *SourceError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrMissingSource):
		return "missing_source"
	case errors.Is(e.Err, ErrMalformedArtifact):
		return "malformed_artifact"
	default:
		return "source_error"
	}
}
