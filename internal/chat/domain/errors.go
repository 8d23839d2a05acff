package domain

import "errors"

var (
	// ErrValidation request failed validation, only the submitter sees it
	ErrValidation = errors.New("validation error")
	// ErrNotFound target message does not exist
	ErrNotFound = errors.New("not found")
	// ErrTransport push channel unavailable
	ErrTransport = errors.New("transport error")
	// ErrStore persistence failure
	ErrStore = errors.New("store error")
	// ErrRateLimited sender exceeded its budget
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized identity missing or mismatched
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTextRequired empty text after trim
	ErrTextRequired = &ValidationError{Msg: "Text is required"}
	// ErrTextTooLong text over the length limit
	ErrTextTooLong = &ValidationError{Msg: "Text is too long"}
	// ErrInvalidPayload malformed push payload
	ErrInvalidPayload = &ValidationError{Msg: "Invalid payload"}
	// ErrInvalidEmoji emoji outside the palette
	ErrInvalidEmoji = &ValidationError{Msg: "Invalid emoji"}
)

// ValidationError user facing validation message, matches ErrValidation
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is make errors.Is(err, ErrValidation) true
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
