package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for HTTP 400 responses.
	ErrInvalidRequest = errors.New("invalid text-to-speech request")

	// ErrAuthentication is returned for HTTP 403 responses.
	ErrAuthentication = errors.New("text-to-speech authentication failed, check the API key")

	// ErrRateLimited is returned for HTTP 429 responses.
	ErrRateLimited = errors.New("text-to-speech rate limit exceeded")

	// ErrSynthesisFailed covers every other failure.
	ErrSynthesisFailed = errors.New("text-to-speech synthesis failed")

	// ErrEmptyText is returned when nothing speakable remains after cleaning.
	ErrEmptyText = errors.New("no speakable text")
)

// TTSError wraps a synthesis failure with the HTTP status when there was one.
type TTSError struct {
	Op         string
	StatusCode int
	Err        error
	Details    string
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	msg := fmt.Sprintf("tts: %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for error unwrapping.
func (e *TTSError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err was caused by provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
