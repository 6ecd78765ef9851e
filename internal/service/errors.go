package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrActivityNotFound indicates the activity does not exist.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAttachmentUpload indicates an attachment could not be stored. Nothing
	// was published when it is returned.
	ErrAttachmentUpload = errors.New("attachment upload failed")
	// ErrActivityPersist indicates the activity document could not be written.
	ErrActivityPersist = errors.New("could not save the activity")
)

// ValidationError reports invalid input. Message is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// OperationError wraps a backend failure behind a user facing message.
// errors.Is matches both Kind and the underlying cause.
type OperationError struct {
	Kind    error
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func (e *OperationError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// PublicMessage returns the part of err that can be returned to API clients.
func PublicMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var operation *OperationError
	if errors.As(err, &operation) {
		return operation.Message
	}
	if errors.Is(err, ErrActivityNotFound) {
		return ErrActivityNotFound.Error()
	}
	return "unexpected error"
}

// describeValidation turns validator output into a single ValidationError.
func describeValidation(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := fieldErrors[0]
	field := strings.ToLower(first.Field())
	switch first.Tag() {
	case "required":
		return newValidationError(field, "%s is required", field)
	case "max":
		return newValidationError(field, "%s must be at most %s characters", field, first.Param())
	case "oneof":
		return newValidationError(field, "%s must be one of: %s", field, first.Param())
	case "ambiente":
		return newValidationError(field, "invalid ambiente %q", first.Value())
	default:
		return newValidationError(field, "%s is invalid", field)
	}
}
