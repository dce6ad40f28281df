package grpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/storefront/go-storefront/core"
)

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    codes.Code
		wantMessage string
	}{
		{name: "quantity", err: core.NewQuantityError("amount must not be negative"), wantCode: codes.InvalidArgument, wantMessage: "amount must not be negative"},
		{name: "anonymous", err: core.NewAnonymousError("identity required"), wantCode: codes.Unauthenticated, wantMessage: "identity required"},
		{name: "invalid token sentinel", err: core.ErrInvalidToken, wantCode: codes.Unauthenticated, wantMessage: "invalid identity token"},
		{name: "not found", err: core.NewNotFoundError("article 7 not found", nil), wantCode: codes.NotFound, wantMessage: "article 7 not found"},
		{name: "extractor error", err: ErrInvalidAuthFormat, wantCode: codes.InvalidArgument, wantMessage: ErrInvalidAuthFormat.Error()},
		{name: "internal", err: errors.New("db: connection refused"), wantCode: codes.Internal, wantMessage: "something went wrong"},
		{name: "status passes through", err: status.Error(codes.Aborted, "retry"), wantCode: codes.Aborted, wantMessage: "retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(DefaultErrorHandler(tt.err))
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, st.Code())
			assert.Equal(t, tt.wantMessage, st.Message())
		})
	}

	assert.NoError(t, DefaultErrorHandler(nil))
}
