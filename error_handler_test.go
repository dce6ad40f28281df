package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/go-storefront/core"
)

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorResponse
	}{
		{
			name:       "invalid quantity",
			err:        core.NewQuantityError("requested amount -1 is negative"),
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorResponse{Code: "invalid_quantity", Message: "requested amount -1 is negative"},
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("find stock: %w", core.NewNotFoundError("article 9 not found", nil)),
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorResponse{Code: "not_found", Message: "article 9 not found"},
		},
		{
			name:       "bare not found sentinel",
			err:        core.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorResponse{Code: "not_found", Message: "Not found."},
		},
		{
			name:       "anonymous",
			err:        core.NewAnonymousError("cart requires a signed-in customer"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrorResponse{Code: "identity_required", Message: "cart requires a signed-in customer"},
		},
		{
			name:       "bare anonymous sentinel",
			err:        core.ErrAnonymous,
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrorResponse{Code: "identity_required", Message: "Sign in to continue."},
		},
		{
			name:       "bare invalid quantity sentinel",
			err:        core.ErrInvalidQuantity,
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorResponse{Code: "invalid_quantity", Message: "Invalid quantity."},
		},
		{
			name:       "internal errors are not described",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Code: "internal_error", Message: "Something went wrong."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			DefaultErrorHandler(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
