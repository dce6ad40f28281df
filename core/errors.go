package core

import "errors"

// Sentinel errors of the storefront core.
var (
	// ErrInvalidToken is returned when an identity token is malformed or
	// carries no usable email claim.
	ErrInvalidToken = errors.New("invalid identity token")

	// ErrInvalidQuantity is returned when a negative amount is requested.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNotFound is returned when a referenced article or cart line does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrAnonymous is returned when a cart operation is attempted without
	// an identity.
	ErrAnonymous = errors.New("identity required")

	// ErrLineConflict is returned by a store when a saved cart line clashes
	// with a different line by uuid or by (email, sku).
	ErrLineConflict = errors.New("cart line conflict")
)

// Error wraps a core failure with additional context.
// It provides structured error information that can be used for
// logging, metrics, and returning appropriate error responses.
type Error struct {
	// Code is a machine-readable error code (e.g., "token_malformed", "not_found")
	Code string

	// Message is a human-readable error message
	Message string

	// Details contains the underlying error
	Details error

	kind error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Details
}

// Is allows the error to be compared with its sentinel.
func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// Error codes
const (
	ErrorCodeTokenMalformed  = "token_malformed"
	ErrorCodePayloadInvalid  = "payload_invalid"
	ErrorCodeClaimsMissing   = "claims_missing"
	ErrorCodeInvalidQuantity = "invalid_quantity"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeIdentityMissing = "identity_required"
)

// NewTokenError creates an Error matching ErrInvalidToken.
func NewTokenError(code, message string, details error) *Error {
	return &Error{Code: code, Message: message, Details: details, kind: ErrInvalidToken}
}

// NewQuantityError creates an Error matching ErrInvalidQuantity.
func NewQuantityError(message string) *Error {
	return &Error{Code: ErrorCodeInvalidQuantity, Message: message, kind: ErrInvalidQuantity}
}

// NewNotFoundError creates an Error matching ErrNotFound.
func NewNotFoundError(message string, details error) *Error {
	return &Error{Code: ErrorCodeNotFound, Message: message, Details: details, kind: ErrNotFound}
}

// NewAnonymousError creates an Error matching ErrAnonymous.
func NewAnonymousError(message string) *Error {
	return &Error{Code: ErrorCodeIdentityMissing, Message: message, kind: ErrAnonymous}
}
