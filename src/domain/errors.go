package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("todo not found")
	ErrWriteConflict    = errors.New("write conflict")
	ErrValidation       = errors.New("validation failed")
)

// ValidationReason identifies why an input was rejected.
type ValidationReason string

const (
	ReasonEmptyTitle         ValidationReason = "EmptyTitle"
	ReasonTitleTooLong       ValidationReason = "TitleTooLong"
	ReasonDescriptionTooLong ValidationReason = "DescriptionTooLong"
	ReasonInvalidPriority    ValidationReason = "InvalidPriority"
	ReasonInvalidScope       ValidationReason = "InvalidScope"
	ReasonInvalidSort        ValidationReason = "InvalidSort"
)

// ValidationError is returned for user-correctable input problems. It never
// reaches storage and matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string           `json:"field"`
	Reason  ValidationReason `json:"reason"`
	Message string           `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for the given field.
func NewValidationError(field string, reason ValidationReason, message string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Message: message}
}

// AsValidationError extracts a *ValidationError from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
