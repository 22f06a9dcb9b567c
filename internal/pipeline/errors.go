package pipeline

import (
	"fmt"
	"strings"
)

// ExtractionError wraps a source client failure. The source client owns its
// own retry policy, so the pipeline never retries extraction itself.
type ExtractionError struct {
	Endpoint string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Endpoint, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Violation is one failed validation rule for one record.
type Violation struct {
	Endpoint string `json:"endpoint"`
	Record   int    `json:"record"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s[%d].%s: %s", v.Endpoint, v.Record, v.Field, v.Reason)
}

// ValidationError fails the run with every violation found. The pipeline
// never proceeds with a partially valid data set.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("validate: %d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

// TransformationError means the configured transformation cannot be applied.
// A configuration defect, never retried.
type TransformationError struct {
	Op     string
	Field  string
	Reason string
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transform %s %q: %s", e.Op, e.Field, e.Reason)
}

// FormatError means the requested file format has no converter or the
// converter rejected the data.
type FormatError struct {
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("format %s: unsupported format", e.Format)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DestinationError is an upload failure after retries, or an authorization
// failure. Authorization failures surface as "reauthorization required" and
// are never retried.
type DestinationError struct {
	Destination string
	Reason      string
	Err         error
}

func (e *DestinationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload to %s: %s: %v", e.Destination, e.Reason, e.Err)
	}
	return fmt.Sprintf("upload to %s: %s", e.Destination, e.Reason)
}

func (e *DestinationError) Unwrap() error { return e.Err }
