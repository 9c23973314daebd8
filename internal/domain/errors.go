package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrInvalidBulkInput is returned when bulk text is not valid structured
	// data or does not decode to a sequence of tasks.
	ErrInvalidBulkInput = errors.New("invalid bulk input")

	// ErrEmptyTaskSet is returned when neither the bulk input nor the local
	// buffer holds any task. No request is sent in that case.
	ErrEmptyTaskSet = errors.New("no tasks to analyze")

	// ErrEmptyStrategy is returned when an analysis is requested without a
	// strategy identifier.
	ErrEmptyStrategy = errors.New("strategy cannot be empty")

	// ErrAnalysisInFlight is returned when an analysis is triggered while a
	// previous one has not resolved yet.
	ErrAnalysisInFlight = errors.New("analysis already in flight")

	// ErrEmptyTitle is returned by the form-entry path when no title was given.
	ErrEmptyTitle = errors.New("task title cannot be empty")
)

// ServerError is returned when the analysis service answers with a
// non-success status. Payload holds the response body verbatim.
type ServerError struct {
	StatusCode int
	Payload    json.RawMessage
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("analysis service returned status %d: %s", e.StatusCode, e.PayloadText())
}

// PayloadText returns the error payload as compact text. Bodies that are not
// valid JSON are returned as-is.
func (e *ServerError) PayloadText() string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, e.Payload); err != nil {
		return string(bytes.TrimSpace(e.Payload))
	}
	return buf.String()
}

// NetworkError is returned when the analysis service could not be reached or
// its response could not be read.
type NetworkError struct {
	BaseURL string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("analysis service at %s unreachable: %v", e.BaseURL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
