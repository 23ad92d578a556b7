package core

import "errors"

// ValidationError reports a rejected input field. Handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	ErrInvalidDate      = NewValidationError("date", "invalid date")
	ErrInvalidAmount    = NewValidationError("amount", "invalid amount")
	ErrInvalidType      = NewValidationError("type", "type must be income or expense")
	ErrInvalidFrequency = NewValidationError("frequency", "frequency must be daily, weekly, monthly or yearly")
	ErrEmptyCategory    = NewValidationError("category", "category is required")
	ErrUnknownCategory  = NewValidationError("category", "unknown category")
	ErrNotesTooLong     = NewValidationError("notes", "notes too long (max 200 characters)")
	ErrGoalCompleted    = NewValidationError("goal", "goal already completed")
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrProtectedCategory  = errors.New("category cannot be deleted")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
)
