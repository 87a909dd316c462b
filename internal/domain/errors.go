package domain

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the current session state.
	ErrInvalidState = errors.New("operation not allowed in current session state")
	// ErrInsufficientScore is returned when a hint is requested with nothing to deduct.
	ErrInsufficientScore = errors.New("insufficient score for hint")
	// ErrSessionNotFound is returned when a quiz session has not been created.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
)

const (
	ReasonPromptTooShort    = "prompt too short"
	ReasonAnswersMissing    = "answer(s) missing"
	ReasonCorrectOutOfRange = "correct option out of range"
	ReasonIdentityMissing   = "identity missing"
)

// ValidationError reports malformed input; the target is left unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
