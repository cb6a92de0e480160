package reservation

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the reservation service.
var (
	ErrPastDateNotAllowed  = errors.New("past date not allowed")
	ErrTooFarInFuture      = errors.New("too far in future")
	ErrFullyBooked         = errors.New("fully booked")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyCancelled    = errors.New("already cancelled")

	ErrInvalidReservationID  = errors.New("invalid reservation id")
	ErrInvalidGuestName      = errors.New("invalid guest name")
	ErrInvalidGuestEmail     = errors.New("invalid guest email")
	ErrInvalidPartySize      = errors.New("invalid party size")
	ErrInvalidSlotDate       = errors.New("invalid slot date")
	ErrInvalidSlotTime       = errors.New("invalid slot time")
	ErrInvalidSpecialRequest = errors.New("invalid special request")
	ErrInvalidStatus         = errors.New("invalid reservation status")
	ErrInvalidServiceConfig  = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
