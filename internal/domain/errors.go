package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the root of every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrInvalidExpenseID  = fmt.Errorf("%w: invalid expense id", ErrValidation)
	ErrInvalidDecision   = fmt.Errorf("%w: status must be Approved or Declined", ErrValidation)
	ErrReasonRequired    = fmt.Errorf("%w: reason is required when declining", ErrValidation)
	ErrReasonTooLong     = fmt.Errorf("%w: reason is too long", ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown expense status", ErrValidation)
	ErrInvalidNumeric    = fmt.Errorf("%w: value is not numeric", ErrValidation)
	ErrInconsistentEntry = fmt.Errorf("%w: entry fields do not match its status", ErrValidation)
)

// Expense store errors
var (
	ErrNotFoundOrAlreadyTransitioned = errors.New("expense not found or already transitioned")
	ErrExpenseNotFound               = errors.New("expense not found")
	ErrDuplicateExpenseID            = errors.New("expense id already belongs to another entry")
	ErrStoreUnavailable              = errors.New("expense store unavailable")
)

// Notification errors
var (
	ErrNotifyFailed         = errors.New("notification delivery failed")
	ErrNotificationNotFound = errors.New("notification not found")
)
