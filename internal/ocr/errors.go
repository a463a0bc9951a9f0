package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrOCRFailed is returned when the recognition backend itself fails.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrFileTooLarge is returned when a document exceeds MaxFileSizeBytes.
	ErrFileTooLarge = errors.New("document size exceeds the maximum limit (20MB)")

	// ErrUnsupportedFormat is returned for inputs the backend cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrInvalidPDF is returned when a PDF cannot be parsed.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrTooManyPages is returned when a PDF has more than MaxPagesSync pages.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument is returned when a document carries no text layer.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS is configured and default credentials are unavailable.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrMissingEngine is returned when the tesseract binary cannot be found.
	ErrMissingEngine = errors.New("tesseract binary not found")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "ProcessDocument", "RunTesseract").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{Op: op, Err: err, Details: details}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
