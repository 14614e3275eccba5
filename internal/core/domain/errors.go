package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptDocument means the source bytes could not be read as a
	// document at all. Fatal for that file only.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrNotAnOrder means the text lacks the order anchor pattern. The
	// file is skipped without counting as a failure.
	ErrNotAnOrder = errors.New("not a service order")
	// ErrFinancialDocument means the text looks like a quotation or
	// carries pricing data without being a confirmed order.
	ErrFinancialDocument = errors.New("financial document rejected")
	// ErrAllValidationFailed means both the content and the filename
	// extraction paths scored below their acceptance thresholds.
	ErrAllValidationFailed = errors.New("all validation paths failed")
	// ErrOrderConflict means content and filename disagree on the order
	// number, which is never reconcilable.
	ErrOrderConflict = errors.New("order number conflict")

	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
