package contract

import "fmt"

// TransportError reports that fetching the payload failed (network, HTTP status, timeout).
type TransportError struct {
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExtractionError reports that a series could not be decoded from a payload.
// No partial results accompany it.
type ExtractionError struct {
	Msg string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Msg, e.Err)
	}
	return "extraction failed: " + e.Msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError reports a store failure or an attempt to save nothing.
type PersistenceError struct {
	Msg string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence failed: %s: %v", e.Msg, e.Err)
	}
	return "persistence failed: " + e.Msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewExtractionError builds an ExtractionError with an optional cause.
func NewExtractionError(msg string, err error) error {
	return &ExtractionError{Msg: msg, Err: err}
}

// NewPersistenceError builds a PersistenceError with an optional cause.
func NewPersistenceError(msg string, err error) error {
	return &PersistenceError{Msg: msg, Err: err}
}
