package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a business error so callers can react without
// parsing messages.
type Kind int

const (
	// KindNotFound indicates the referenced reservation does not exist.
	KindNotFound Kind = iota
	// KindForbidden indicates the acting principal is not allowed to
	// perform the operation.
	KindForbidden
	// KindIllegalTransition indicates the requested status change is not
	// a legal edge of the reservation state machine.
	KindIllegalTransition
	// KindInsufficientInventory indicates the catalog reports less
	// available quantity than requested.
	KindInsufficientInventory
	// KindOutOfWindow indicates the reservation period falls outside the
	// item's applicable availability window.
	KindOutOfWindow
	// KindRemoteUnavailable indicates the item catalog could not be
	// reached. The admissibility checker converts this to a skip and it
	// is never surfaced to API callers.
	KindRemoteUnavailable
	// KindValidation indicates a request failed the per-category
	// required-field rules.
	KindValidation
	// KindInternal is the fallback classification.
	KindInternal
)

// BusinessError carries a classification, a stable code and a
// human-readable message.
type BusinessError struct {
	Kind      Kind
	Code      string
	Message   string
	Cause     error
	Available int // remaining quantity, set for KindInsufficientInventory
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *BusinessError) Unwrap() error {
	return e.Cause
}

// NotFound creates a not-found error for the given reservation id.
func NotFound(id string) *BusinessError {
	return &BusinessError{
		Kind:    KindNotFound,
		Code:    "RESERVATION_NOT_FOUND",
		Message: fmt.Sprintf("reservation %s not found", id),
	}
}

// Forbidden creates an authorization failure with a reason.
func Forbidden(message string) *BusinessError {
	return &BusinessError{
		Kind:    KindForbidden,
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// IllegalTransition creates a state machine violation with a reason.
func IllegalTransition(message string) *BusinessError {
	return &BusinessError{
		Kind:    KindIllegalTransition,
		Code:    "ILLEGAL_TRANSITION",
		Message: message,
	}
}

// InsufficientInventory creates an inventory shortage error carrying
// the remaining available quantity.
func InsufficientInventory(available int) *BusinessError {
	return &BusinessError{
		Kind:      KindInsufficientInventory,
		Code:      "INSUFFICIENT_INVENTORY",
		Message:   fmt.Sprintf("not enough inventory available (available: %d)", available),
		Available: available,
	}
}

// OutOfWindow creates an availability-window violation with a reason
// distinguishing too-early starts from too-late ends.
func OutOfWindow(message string) *BusinessError {
	return &BusinessError{
		Kind:    KindOutOfWindow,
		Code:    "OUT_OF_WINDOW",
		Message: message,
	}
}

// RemoteUnavailable wraps a catalog transport or breaker-open failure.
func RemoteUnavailable(cause error) *BusinessError {
	return &BusinessError{
		Kind:    KindRemoteUnavailable,
		Code:    "CATALOG_UNAVAILABLE",
		Message: "item catalog is unavailable",
		Cause:   cause,
	}
}

// Validation creates a required-field rule violation.
func Validation(message string) *BusinessError {
	return &BusinessError{
		Kind:    KindValidation,
		Code:    "INVALID_RESERVATION",
		Message: message,
	}
}

// Internal wraps an unclassified error.
func Internal(message string, cause error) *BusinessError {
	return &BusinessError{
		Kind:    KindInternal,
		Code:    "INTERNAL",
		Message: message,
		Cause:   cause,
	}
}

// KindOf extracts the classification from an error chain, defaulting to
// KindInternal for unknown errors.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRemoteUnavailable reports whether the error chain contains a
// catalog-unavailable failure.
func IsRemoteUnavailable(err error) bool {
	return IsKind(err, KindRemoteUnavailable)
}
