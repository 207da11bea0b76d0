package errors

import (
	"fmt"
	"strings"
)

// Failure is one extractor's error within a dispatch
type Failure struct {
	Extractor string `json:"extractor"`
	Err       error  `json:"-"`
}

// Message returns the rendered error text
func (f Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// AggregateError is returned when every candidate extractor failed.
// Failures keep the order in which candidates were tried.
type AggregateError struct {
	MimeType string    `json:"mime_type"`
	Failures []Failure `json:"failures"`
}

// NewAggregateError creates an empty aggregate for a MIME type
func NewAggregateError(mimeType string) *AggregateError {
	return &AggregateError{
		MimeType: mimeType,
		Failures: make([]Failure, 0),
	}
}

// Add records an extractor failure
func (a *AggregateError) Add(extractor string, err error) {
	a.Failures = append(a.Failures, Failure{Extractor: extractor, Err: err})
}

// Len returns the number of recorded failures
func (a *AggregateError) Len() int {
	return len(a.Failures)
}

// Error implements the error interface
func (a *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %d extractor(s) failed for %q", len(a.Failures), a.MimeType)
	for _, f := range a.Failures {
		fmt.Fprintf(&b, "; %s: %s", f.Extractor, f.Message())
	}
	return b.String()
}

// Unwrap exposes every per-extractor error to errors.Is and errors.As
func (a *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(a.Failures))
	for _, f := range a.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Is matches ErrAllExtractorsFailed
func (a *AggregateError) Is(target error) bool {
	return target == ErrAllExtractorsFailed
}

// Extractors returns the names of the attempted extractors in order
func (a *AggregateError) Extractors() []string {
	names := make([]string, len(a.Failures))
	for i, f := range a.Failures {
		names[i] = f.Extractor
	}
	return names
}

// Summary returns a short text summary of the failures
func (a *AggregateError) Summary() string {
	if len(a.Failures) == 0 {
		return "No failures"
	}
	return fmt.Sprintf("%d extractor(s) failed: %s", len(a.Failures), strings.Join(a.Extractors(), ", "))
}
