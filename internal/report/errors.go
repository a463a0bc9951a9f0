package report

import (
	"errors"
	"fmt"
)

var (
	// ErrSummarizationFailed is returned when the language model call fails.
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrParseFailure is returned when the model response is not a JSON object
	// after code fences are removed.
	ErrParseFailure = errors.New("failed to parse summary")

	// ErrEmptySummary is returned when the parsed response has no usable content.
	ErrEmptySummary = errors.New("summary contains no content")

	// ErrPDFRender is returned when the summary could not be rendered.
	ErrPDFRender = errors.New("failed to render summary PDF")

	// ErrEmptyQuestion is returned by Chat for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)

// ReportError wraps failures of the summary pipeline with the failing step.
type ReportError struct {
	// Op is the operation that failed (e.g., "Summarize", "ParseSummary").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("report: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("report: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ReportError) Unwrap() error {
	return e.Err
}

// NewReportError creates a new ReportError.
func NewReportError(op string, err error, details string) *ReportError {
	return &ReportError{Op: op, Err: err, Details: details}
}

// PublicDetails is the message safe to return to API clients for err.
func PublicDetails(err error) string {
	switch {
	case errors.Is(err, ErrParseFailure):
		return ErrParseFailure.Error()
	case errors.Is(err, ErrEmptySummary):
		return ErrEmptySummary.Error()
	default:
		return err.Error()
	}
}
