package models

import (
	"errors"
	"fmt"
)

// Failure conditions surfaced across the retrieval and composition
// boundary. Callers match with errors.Is and own the retry policy; the
// core never retries internally.
var (
	// ErrRetrievalUnavailable marks a failed embedding or index lookup.
	// The caller decides whether to answer ungrounded or abort.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationUnavailable marks a failed answer composition. The
	// conversation state is not advanced so the question is not lost.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrCorruptIndex marks a vector index whose metadata store is out of
	// referential sync. The retriever refuses to serve until a rebuild.
	ErrCorruptIndex = errors.New("corrupt index")
)

// ValidationError reports a malformed or out-of-range profile field. It is
// always recovered locally by re-prompting and never surfaced as a hard
// failure.
type ValidationError struct {
	Field  ProfileField
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field ProfileField, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
