package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storefront/go-storefront/core"
)

// ErrorHandler writes the response for an error returned by a storefront
// operation or raised by the identity middleware.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusCode maps err onto an HTTP status:
// ErrInvalidQuantity → 400, ErrAnonymous → 401, ErrNotFound → 404 and
// anything else → 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAnonymous), errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response builds the body for err. Internal errors are not described to
// the client.
func Response(err error) ErrorResponse {
	var coreErr *core.Error
	status := StatusCode(err)

	switch {
	case status == http.StatusInternalServerError:
		return ErrorResponse{Code: "internal_error", Message: "Something went wrong."}
	case errors.As(err, &coreErr):
		return ErrorResponse{Code: coreErr.Code, Message: coreErr.Message}
	case status == http.StatusUnauthorized:
		return ErrorResponse{Code: core.ErrorCodeIdentityMissing, Message: "Sign in to continue."}
	case status == http.StatusNotFound:
		return ErrorResponse{Code: core.ErrorCodeNotFound, Message: "Not found."}
	default:
		return ErrorResponse{Code: core.ErrorCodeInvalidQuantity, Message: "Invalid quantity."}
	}
}

// DefaultErrorHandler is the default error handler implementation. It
// writes StatusCode(err) with a JSON ErrorResponse.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(Response(err))
}
