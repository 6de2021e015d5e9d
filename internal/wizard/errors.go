package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrWrongStep          = errors.New("operation not allowed in the current step")
	ErrNoBack             = errors.New("no back transition from the current step")
	ErrDuplicatePending   = errors.New("existing confirmation must be resolved first")
	ErrNoDuplicate        = errors.New("no existing confirmation to resolve")
	ErrSecretMismatch     = errors.New("document does not match the existing confirmation")
	ErrSeatsUnavailable   = errors.New("not enough transport seats left")
	ErrRegistrationClosed = errors.New("registration is closed")
)

// ValidationError is a local input problem. It blocks the step and never
// reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
