// Command storefront serves the catalog and cart API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	storefront "github.com/storefront/go-storefront"
	"github.com/storefront/go-storefront/cart"
	"github.com/storefront/go-storefront/catalog"
	"github.com/storefront/go-storefront/core"
	storefrontgin "github.com/storefront/go-storefront/framework/gin"
	storefrontgrpc "github.com/storefront/go-storefront/integrations/grpc"
	"github.com/storefront/go-storefront/internal/grpcapi"
	"github.com/storefront/go-storefront/internal/httpapi"
	"github.com/storefront/go-storefront/jwks"
	"github.com/storefront/go-storefront/session"
	"github.com/storefront/go-storefront/store/memstore"
	"github.com/storefront/go-storefront/store/sqlstore"
	"github.com/storefront/go-storefront/telemetry"
	"github.com/storefront/go-storefront/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.New()

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("storefront stopped")
	}
}

func run(ctx context.Context, cfg config, log *logrus.Logger) error {
	logger := storefront.NewLogrusLogger(log)
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusMetrics(registry)
	tracer := telemetry.NewOpenTelemetryTracer(otel.Tracer("github.com/storefront/go-storefront"))

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}

	lister, err := catalog.NewLister(store, catalog.WithLogger(logger))
	if err != nil {
		return err
	}
	carts, err := cart.NewService(store,
		cart.WithLogger(logger),
		cart.WithTracer(tracer),
		cart.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	api, err := httpapi.New(lister, carts, store, httpapi.WithLogger(logger))
	if err != nil {
		return err
	}

	middleware, err := storefront.New(
		storefront.WithResolver(resolver),
		storefront.WithLogger(logger),
		storefront.WithMetrics(metrics),
		storefront.WithExclusionUrls([]string{"/healthz", "/metrics"}),
	)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.Use(storefrontgin.NewMiddleware(middleware))
	api.Register(router)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer, err = newGRPCServer(resolver, carts, logger)
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("grpc server listening")
			if err := grpcServer.Serve(lis); err != nil {
				errs <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errs:
		return err
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return server.Shutdown(shutdownCtx)
}

// openStore returns the SQL store when a driver is configured, and an empty
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config, logger core.Logger) (core.Store, func(), error) {
	if cfg.DBDriver == "" {
		logger.Warn("no database configured, using an empty in-memory store")
		return memstore.NewMemoryStore(), func() {}, nil
	}

	s, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN, sqlstore.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}, nil
}

// newResolver verifies tokens against the issuer's key set when an issuer
// is configured. Without one, tokens are only decoded.
func newResolver(ctx context.Context, cfg config, logger core.Logger) (*session.Resolver, error) {
	if cfg.IssuerURL == nil {
		logger.Warn("no issuer configured, identity tokens are not verified")
		return session.New(session.WithLogger(logger))
	}

	providerOpts := []jwks.Option{
		jwks.WithIssuerURL(cfg.IssuerURL),
		jwks.WithLogger(logger),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		cache, err := jwks.NewRedisCache(client)
		if err != nil {
			return nil, err
		}
		providerOpts = append(providerOpts, jwks.WithCache(cache))
	}

	provider, err := jwks.NewCachingProvider(providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS provider: %w", err)
	}

	v, err := validator.New(
		validator.WithKeySource(provider),
		validator.WithIssuer(cfg.IssuerURL.String()),
		validator.WithAudience(cfg.Audience),
		validator.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return session.New(session.WithVerifier(v), session.WithLogger(logger))
}

func newGRPCServer(resolver *session.Resolver, carts *cart.Service, logger core.Logger) (*grpc.Server, error) {
	interceptor, err := storefrontgrpc.New(
		storefrontgrpc.WithResolver(resolver),
		storefrontgrpc.WithLogger(logger),
		storefrontgrpc.WithExcludedMethods(
			"/grpc.health.v1.Health/Check",
			"/grpc.health.v1.Health/Watch",
		),
	)
	if err != nil {
		return nil, err
	}
	cartServer, err := grpcapi.New(carts, grpcapi.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	server := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
		grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
	)
	cartServer.Register(server)
	healthpb.RegisterHealthServer(server, health.NewServer())
	return server, nil
}
