package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the core.
var (
	// ErrNotFound indicates a referenced record no longer exists.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyActive indicates a session begin while one is open.
	ErrAlreadyActive = errors.New("session already active")
	// ErrNoActiveSession indicates an advance without an open session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrDuplicate indicates a uniqueness rule was violated (one pending
	// application per user).
	ErrDuplicate = errors.New("duplicate record")
)

// Validation failure codes.
const (
	ValidationEmpty      = "empty"
	ValidationNotANumber = "not_a_number"
	ValidationOutOfRange = "out_of_range"
	ValidationBadFormat  = "bad_format"
)

// ValidationError reports bad user input. It is always recovered locally by
// re-prompting; it never crosses the dispatcher boundary.
type ValidationError struct {
	Code string
	Hint string
}

func (e *ValidationError) Error() string {
	if e.Hint == "" {
		return "validation: " + e.Code
	}
	return fmt.Sprintf("validation: %s (%s)", e.Code, e.Hint)
}

// Invalid constructs a ValidationError.
func Invalid(code, hint string) *ValidationError {
	return &ValidationError{Code: code, Hint: hint}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DeliveryError reports a failed Messenger call.
type DeliveryError struct {
	To  Recipient
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PartialMutationError reports a terminal action that failed midway through
// its store sequence. Compensation errors, if any, mean the system may be
// left inconsistent despite the rollback attempt.
type PartialMutationError struct {
	Action       string
	FailedStep   string
	Err          error
	Compensation []error
}

func (e *PartialMutationError) Error() string {
	msg := fmt.Sprintf("action %s failed at step %s: %v", e.Action, e.FailedStep, e.Err)
	if len(e.Compensation) > 0 {
		parts := make([]string, 0, len(e.Compensation))
		for _, cerr := range e.Compensation {
			parts = append(parts, cerr.Error())
		}
		msg += "; compensation errors: " + strings.Join(parts, "; ")
	}
	return msg
}

func (e *PartialMutationError) Unwrap() error { return e.Err }
