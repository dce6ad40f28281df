// Package grpcapi exposes the cart over gRPC.
//
// Messages are google.protobuf.Struct values, so the service needs no
// generated code: a client calls e.g. /storefront.v1.Cart/AddToCart with
// {"sku": 5, "amount": 2}. The identity must already be resolved by the
// interceptors of integrations/grpc.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/storefront/go-storefront/cart"
	"github.com/storefront/go-storefront/core"
	storefrontgrpc "github.com/storefront/go-storefront/integrations/grpc"
	"github.com/storefront/go-storefront/pricing"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "storefront.v1.Cart"

// CartServer is the handler interface of the Cart service.
type CartServer interface {
	GetCart(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	AddToCart(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ChangeAmount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RemoveFromCart(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetCart", CartServer.GetCart),
		unary("AddToCart", CartServer.AddToCart),
		unary("ChangeAmount", CartServer.ChangeAmount),
		unary("RemoveFromCart", CartServer.RemoveFromCart),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/cart",
}

func unary(name string, call func(CartServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// Server implements CartServer on a cart.Service.
type Server struct {
	carts        *cart.Service
	errorHandler storefrontgrpc.ErrorHandler
	logger       core.Logger
}

var _ CartServer = (*Server)(nil)

// Option configures the Server.
type Option func(*Server) error

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithErrorHandler replaces storefrontgrpc.DefaultErrorHandler.
func WithErrorHandler(h storefrontgrpc.ErrorHandler) Option {
	return func(s *Server) error {
		if h == nil {
			return errors.New("error handler cannot be nil")
		}
		s.errorHandler = h
		return nil
	}
}

// New returns a Server over carts.
func New(carts *cart.Service, opts ...Option) (*Server, error) {
	if carts == nil {
		return nil, errors.New("cart service is required")
	}

	s := &Server{carts: carts, errorHandler: storefrontgrpc.DefaultErrorHandler}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return s, nil
}

// Register adds the Cart service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

// GetCart returns the priced cart of the caller. Anonymous callers get an
// empty cart.
func (s *Server) GetCart(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	contents, err := s.carts.Summary(ctx, storefrontgrpc.GetIdentity(ctx))
	if err != nil {
		return nil, s.fail("GetCart", err)
	}

	items := make([]any, 0, len(contents.Items))
	for _, it := range contents.Items {
		item := lineFields(it.Line)
		item["title"] = it.Article.Title
		item["price"] = pricing.FormatMoney(it.Article.SellingPrice)
		item["subtotal"] = pricing.FormatMoney(it.Price.Subtotal())
		items = append(items, item)
	}
	f := contents.Summary.Format()
	return s.reply("GetCart", map[string]any{
		"items":          items,
		"total":          f.Total,
		"total_excl_vat": f.ExclVat,
		"vat":            f.Vat,
		"discount":       f.Discount,
	})
}

// AddToCart takes {"sku", "amount"} and returns the resulting line.
func (s *Server) AddToCart(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sku, amount, err := skuAndAmount(in)
	if err != nil {
		return nil, s.fail("AddToCart", err)
	}

	line, err := s.carts.Add(ctx, storefrontgrpc.GetIdentity(ctx), sku, amount)
	if err != nil {
		return nil, s.fail("AddToCart", err)
	}
	return s.reply("AddToCart", lineFields(*line))
}

// ChangeAmount takes {"sku", "amount"} and sets the line to exactly amount.
func (s *Server) ChangeAmount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sku, amount, err := skuAndAmount(in)
	if err != nil {
		return nil, s.fail("ChangeAmount", err)
	}

	line, err := s.carts.ChangeAmount(ctx, storefrontgrpc.GetIdentity(ctx), sku, amount)
	if err != nil {
		return nil, s.fail("ChangeAmount", err)
	}
	return s.reply("ChangeAmount", lineFields(*line))
}

// RemoveFromCart takes {"uuid"}. Removing an unknown line succeeds.
func (s *Server) RemoveFromCart(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	uuid := in.GetFields()["uuid"].GetStringValue()
	if uuid == "" {
		return nil, status.Error(codes.InvalidArgument, "uuid is required")
	}

	if err := s.carts.Remove(ctx, storefrontgrpc.GetIdentity(ctx), uuid); err != nil {
		return nil, s.fail("RemoveFromCart", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func (s *Server) reply(method string, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, s.fail(method, fmt.Errorf("encode reply: %w", err))
	}
	return out, nil
}

func (s *Server) fail(method string, err error) error {
	if s.logger != nil && !errors.Is(err, core.ErrNotFound) &&
		!errors.Is(err, core.ErrInvalidQuantity) && !errors.Is(err, core.ErrAnonymous) {
		if _, ok := status.FromError(err); !ok {
			s.logger.Error("grpc call failed", "method", method, "error", err)
		}
	}
	return s.errorHandler(err)
}

func lineFields(l core.CartLine) map[string]any {
	return map[string]any{
		"uuid":   l.UUID,
		"sku":    l.ArticleSKU,
		"amount": l.Amount,
	}
}

func skuAndAmount(in *structpb.Struct) (int64, int64, error) {
	sku, ok := wholeNumber(in, "sku")
	if !ok {
		return 0, 0, status.Error(codes.InvalidArgument, "sku must be a whole number")
	}
	amount, ok := wholeNumber(in, "amount")
	if !ok {
		return 0, 0, core.NewQuantityError("amount must be a whole number")
	}
	return sku, amount, nil
}

// wholeNumber reads an integral number field. Struct numbers are float64,
// so only values within ±2^53 are exact.
func wholeNumber(in *structpb.Struct, name string) (int64, bool) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
