package booking

import (
	"errors"
	"fmt"
)

// Error codes for booking-flow outcomes.
const (
	CodeValidation         = "validationError"
	CodeAlreadyActive      = "alreadyActive"
	CodeInvalidState       = "invalidState"
	CodePricingUnavailable = "pricingUnavailable"
	CodePersistence        = "persistenceFailure"
	CodeNotFound           = "notFound"
)

// FlowError is a code-bearing error for booking-flow outcomes. Validation
// errors carry the user-facing re-prompt message.
type FlowError struct {
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(msg string) error {
	return &FlowError{Code: CodeValidation, Message: msg}
}

func NewAlreadyActiveError(bookingID string) error {
	return &FlowError{Code: CodeAlreadyActive, Message: fmt.Sprintf("a booking (%s) is already in progress", bookingID)}
}

func NewInvalidStateError(msg string) error {
	return &FlowError{Code: CodeInvalidState, Message: msg}
}

func NewNotFoundError(bookingID string) error {
	return &FlowError{Code: CodeNotFound, Message: fmt.Sprintf("booking session %s not found", bookingID)}
}

// IsCode reports whether err is a FlowError with the given code.
func IsCode(err error, code string) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Code == code
}

// UserMessage extracts the re-prompt text from a flow error, or a generic
// fallback for anything else. Not-found messages carry internal ids, so
// they also get the generic copy.
func UserMessage(err error) string {
	var fe *FlowError
	if errors.As(err, &fe) && fe.Code != CodeNotFound {
		return fe.Message
	}
	return "An error occurred. Please try again or start a new booking."
}
