package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPermissionDenied is returned when the platform refuses location access.
// Tracking stays off until the user grants access again.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrSubmissionInFlight rejects a report while another one is being written.
var ErrSubmissionInFlight = errors.New("a parking report is already being submitted")

// ValidationError lists every required report field that is missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid parking report: missing or invalid " + strings.Join(e.Fields, ", ")
}

// TransportError wraps network and timeout failures talking to a collaborator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StoreWriteError is a rejection by the event store. Message is what the
// store said, nothing more.
type StoreWriteError struct {
	Message string
}

func (e *StoreWriteError) Error() string { return e.Message }

// UserMessage is the text shown at the point of action for a failed submission.
func UserMessage(err error) string {
	var ve *ValidationError
	var se *StoreWriteError
	var te *TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &te):
		return "network error, please try again"
	case errors.Is(err, ErrSubmissionInFlight):
		return err.Error()
	case err == nil:
		return ""
	}
	return "unable to save spot"
}
