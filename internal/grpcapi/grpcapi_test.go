package grpcapi

import (
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/storefront/go-storefront/cart"
	"github.com/storefront/go-storefront/core"
	storefrontgrpc "github.com/storefront/go-storefront/integrations/grpc"
	"github.com/storefront/go-storefront/store/memstore"
)

func buildTestToken(email string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." +
		enc.EncodeToString([]byte(`{"email":"`+email+`"}`)) + ".sig"
}

func signedIn(email string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+buildTestToken(email))
}

type client struct {
	conn *grpc.ClientConn
}

func (c client) call(t *testing.T, ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
	return out, err
}

func newClient(t *testing.T) client {
	t.Helper()

	store := memstore.NewMemoryStore()
	store.PutArticle(core.Article{
		SKU:          5,
		Title:        "Espresso cup",
		SellingPrice: decimal.NewFromInt(10),
		ListPrice:    decimal.NewNullDecimal(decimal.NewFromInt(20)),
		Available:    true,
		Stock:        3,
	})
	carts, err := cart.NewService(store)
	require.NoError(t, err)
	srv, err := New(carts)
	require.NoError(t, err)
	interceptor, err := storefrontgrpc.New()
	require.NoError(t, err)

	server := grpc.NewServer(grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()))
	srv.Register(server)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return client{conn: conn}
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.EqualError(t, err, "cart service is required")

	carts, err := cart.NewService(memstore.NewMemoryStore())
	require.NoError(t, err)
	_, err = New(carts, WithErrorHandler(nil))
	assert.ErrorContains(t, err, "invalid option")
}

func TestCartService(t *testing.T) {
	c := newClient(t)
	ctx := signedIn("a@b.ch")

	t.Run("anonymous cart is empty", func(t *testing.T) {
		out, err := c.call(t, context.Background(), "GetCart", nil)
		require.NoError(t, err)
		assert.Empty(t, out.GetFields()["items"].GetListValue().GetValues())
		assert.Equal(t, "0.00 CHF", out.GetFields()["total"].GetStringValue())
	})

	t.Run("anonymous add is unauthenticated", func(t *testing.T) {
		_, err := c.call(t, context.Background(), "AddToCart", map[string]any{"sku": 5, "amount": 1})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	var lineUUID string
	t.Run("add merges and clamps", func(t *testing.T) {
		first, err := c.call(t, ctx, "AddToCart", map[string]any{"sku": 5, "amount": 2})
		require.NoError(t, err)
		assert.Equal(t, float64(2), first.GetFields()["amount"].GetNumberValue())

		second, err := c.call(t, ctx, "AddToCart", map[string]any{"sku": 5, "amount": 2})
		require.NoError(t, err)
		assert.Equal(t, first.GetFields()["uuid"].GetStringValue(), second.GetFields()["uuid"].GetStringValue())
		assert.Equal(t, float64(3), second.GetFields()["amount"].GetNumberValue())
		lineUUID = second.GetFields()["uuid"].GetStringValue()
	})

	t.Run("summary", func(t *testing.T) {
		out, err := c.call(t, ctx, "GetCart", nil)
		require.NoError(t, err)
		items := out.GetFields()["items"].GetListValue().GetValues()
		require.Len(t, items, 1)
		assert.Equal(t, "Espresso cup", items[0].GetStructValue().GetFields()["title"].GetStringValue())
		assert.Equal(t, "30.00 CHF", out.GetFields()["total"].GetStringValue())
		assert.Equal(t, "30.00 CHF", out.GetFields()["discount"].GetStringValue())
	})

	t.Run("invalid requests", func(t *testing.T) {
		tests := []struct {
			name     string
			method   string
			fields   map[string]any
			wantCode codes.Code
		}{
			{name: "missing sku", method: "AddToCart", fields: map[string]any{"amount": 1}, wantCode: codes.InvalidArgument},
			{name: "fractional amount", method: "AddToCart", fields: map[string]any{"sku": 5, "amount": 1.5}, wantCode: codes.InvalidArgument},
			{name: "amount as text", method: "AddToCart", fields: map[string]any{"sku": 5, "amount": "2"}, wantCode: codes.InvalidArgument},
			{name: "negative amount", method: "ChangeAmount", fields: map[string]any{"sku": 5, "amount": -1}, wantCode: codes.InvalidArgument},
			{name: "unknown article", method: "AddToCart", fields: map[string]any{"sku": 404, "amount": 1}, wantCode: codes.NotFound},
			{name: "line not in cart", method: "ChangeAmount", fields: map[string]any{"sku": 404, "amount": 1}, wantCode: codes.NotFound},
			{name: "remove without uuid", method: "RemoveFromCart", fields: nil, wantCode: codes.InvalidArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := c.call(t, ctx, tt.method, tt.fields)
				assert.Equal(t, tt.wantCode, status.Code(err))
			})
		}
	})

	t.Run("change amount", func(t *testing.T) {
		out, err := c.call(t, ctx, "ChangeAmount", map[string]any{"sku": 5, "amount": 1})
		require.NoError(t, err)
		assert.Equal(t, float64(1), out.GetFields()["amount"].GetNumberValue())
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		_, err := c.call(t, ctx, "RemoveFromCart", map[string]any{"uuid": lineUUID})
		require.NoError(t, err)
		_, err = c.call(t, ctx, "RemoveFromCart", map[string]any{"uuid": lineUUID})
		require.NoError(t, err)

		out, err := c.call(t, ctx, "GetCart", nil)
		require.NoError(t, err)
		assert.Empty(t, out.GetFields()["items"].GetListValue().GetValues())
	})
}

func TestWholeNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int64
		wantOK bool
	}{
		{name: "integer", value: 7, want: 7, wantOK: true},
		{name: "negative", value: -2, want: -2, wantOK: true},
		{name: "fraction", value: 0.5},
		{name: "beyond exact range", value: float64(1 << 60)},
		{name: "string", value: "7"},
		{name: "bool", value: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(map[string]any{"n": tt.value})
			require.NoError(t, err)
			got, ok := wholeNumber(in, "n")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := wholeNumber(&structpb.Struct{}, "n")
	assert.False(t, ok)
}
