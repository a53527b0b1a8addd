package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Validation constants
const (
	MaxExpenseIDLength = 128
	MaxReasonLength    = 2000
)

// ValidateExpenseID rejects empty identifiers and those containing
// whitespace, control characters or path separators.
func ValidateExpenseID(id string) error {
	if id == "" || strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidExpenseID)
	}
	if len(id) > MaxExpenseIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidExpenseID, MaxExpenseIDLength)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' || r == '\\' {
			return fmt.Errorf("%w: contains forbidden character %q", ErrInvalidExpenseID, r)
		}
	}
	return nil
}

// ValidateDecision checks the decision and its reason. A decline needs a
// non-blank reason; an approval may carry one.
func ValidateDecision(decision Decision, reason string) error {
	if !decision.IsValid() {
		return ErrInvalidDecision
	}
	if len(reason) > MaxReasonLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrReasonTooLong, MaxReasonLength)
	}
	if decision == DecisionDecline && strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 500
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
