package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Stage outcomes. None of these escape the pipeline; they only explain why a
// signal was discarded.
var (
	// ErrNoStructuredOutput means the classifier response held no extractable JSON object.
	ErrNoStructuredOutput = errors.New("no structured output in classifier response")
	// ErrMalformedJSON means the JSON parsed but lacked required keys or had mismatched types.
	ErrMalformedJSON = errors.New("malformed classifier JSON")
	// ErrNoCompany means the relevance object did not name a company.
	ErrNoCompany = errors.New("no company identified")
	// ErrBelowThreshold means a classifier score did not clear its gate.
	ErrBelowThreshold = errors.New("score below threshold")
	// ErrNotNovel means the novelty classifier judged a lead to repeat the company's history.
	ErrNotNovel = errors.New("lead is not novel")
	// ErrDuplicateContent means the context fingerprint already exists in the company's history.
	ErrDuplicateContent = errors.New("duplicate content")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
