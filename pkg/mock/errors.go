package mock

import (
	"errors"
	"fmt"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/google/uuid"
)

var (
	// ErrExtraction is wrapped by every ExtractionError
	ErrExtraction = errors.New("unsupported query shape")

	// ErrUnsupportedOperation is returned by BatchExecute for a batch item
	// that is not an insert, update or delete
	ErrUnsupportedOperation = engine.ErrUnsupportedOperation

	// ErrUnreceived is wrapped by every UnreceivedError
	ErrUnreceived = errors.New("expectation was never received")
)

// ExtractionError reports a filter or value the matcher cannot turn into
// parameters. Matching never guesses: the query fails instead.
type ExtractionError struct {
	Entity string
	Path   string
	Reason string
}

func (e *ExtractionError) Error() string {
	switch {
	case e.Entity != "" && e.Path != "":
		return fmt.Sprintf("%s on %s.%s: %s", ErrExtraction, e.Entity, e.Path, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("%s on %s: %s", ErrExtraction, e.Path, e.Reason)
	case e.Entity != "":
		return fmt.Sprintf("%s on %s: %s", ErrExtraction, e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrExtraction, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return ErrExtraction
}

// UnreceivedError names a registered expectation no request ever matched
type UnreceivedError struct {
	ID     uuid.UUID
	Kind   Kind
	Schema string
}

func (e *UnreceivedError) Error() string {
	return fmt.Sprintf("%s mock for %s (%s) was never received", e.Kind, e.Schema, e.ID)
}

func (e *UnreceivedError) Unwrap() error {
	return ErrUnreceived
}

// SpecError wraps the builder error of a registered expectation. It is
// returned when a lookup reaches the broken expectation and by Verify.
type SpecError struct {
	ID     uuid.UUID
	Kind   Kind
	Schema string
	Err    error
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("invalid %s mock for %s (%s): %v", e.Kind, e.Schema, e.ID, e.Err)
}

func (e *SpecError) Unwrap() error {
	return e.Err
}
