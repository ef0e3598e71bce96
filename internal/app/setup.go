// Package app wires the cart service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/gomarketplace/internal/cart"
	svcconfig "github.com/abgdnv/gomarketplace/internal/config"
	"github.com/abgdnv/gomarketplace/internal/kv"
	grpcImpl "github.com/abgdnv/gomarketplace/internal/transport/grpc"
	"github.com/abgdnv/gomarketplace/internal/transport/rest"
	"github.com/abgdnv/gomarketplace/pkg/bootstrap"
	"github.com/abgdnv/gomarketplace/pkg/config"
	pnats "github.com/abgdnv/gomarketplace/pkg/nats"
	"github.com/abgdnv/gomarketplace/pkg/server"
	"github.com/abgdnv/gomarketplace/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
)

// Dependencies are the long-lived components shared by the servers.
type Dependencies struct {
	Store          *cart.Store
	Storage        kv.Storage
	Health         *grpcImpl.Health
	JetStream      jetstream.JetStream
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// Resources holds connections that must be released on shutdown, in reverse order of opening.
type Resources struct {
	closers []func()
}

func (r *Resources) add(fn func()) {
	r.closers = append(r.closers, fn)
}

// Close releases every resource.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// OpenStorage connects to the backend selected by cfg.Storage.Driver and wraps it
// in a circuit breaker when enabled. NATS is connected when either the storage or
// the events publisher needs it.
func OpenStorage(ctx context.Context, cfg *svcconfig.Config, res *Resources, logger *slog.Logger) (kv.Storage, jetstream.JetStream, error) {
	var js jetstream.JetStream
	if cfg.Storage.Driver == config.DriverNATS || cfg.Events.Enabled {
		nc, err := pnats.NewClient(cfg.NATS.URL, cfg.NATS.Timeout)
		if err != nil {
			return nil, nil, err
		}
		res.add(func() { drain(nc, logger) })
		js, err = pnats.NewJetStreamContext(nc)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	var storage kv.Storage
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, the cart will not survive a restart")
		storage = kv.NewMemory()
	case config.DriverRedis:
		client, err := bootstrap.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		res.add(func() { _ = client.Close() })
		storage = kv.NewRedis(client)
	case config.DriverPostgres:
		if cfg.Database.Migrate {
			if err := kv.Migrate(cfg.Database.URL); err != nil {
				return nil, nil, err
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		res.add(dbPool.Close)
		storage = kv.NewPostgres(dbPool)
	case config.DriverNATS:
		s, err := kv.NewNATS(ctx, js, cfg.Storage.Bucket)
		if err != nil {
			return nil, nil, err
		}
		storage = s
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Resilience.CircuitBreaker.Enabled {
		storage = kv.NewResilient("cart-storage-"+cfg.Storage.Driver, storage, cfg.Resilience.CircuitBreaker)
	}
	logger.Info("Cart storage ready", "driver", cfg.Storage.Driver)
	return storage, js, nil
}

func drain(nc *nats.Conn, logger *slog.Logger) {
	if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		logger.Warn("Failed to drain NATS connection", "error", err)
	}
}

// NewStoreOptions maps the service configuration onto store options.
func NewStoreOptions(cfg *svcconfig.Config, logger *slog.Logger, meter metric.Meter) cart.Options {
	return cart.Options{
		Key:              cfg.Storage.Key,
		RehydrateTimeout: cfg.Cart.RehydrateTimeout,
		WriteTimeout:     cfg.Cart.WriteTimeout,
		Retry: cart.RetryPolicy{
			MaxAttempts:    cfg.Resilience.Retry.MaxAttempts,
			InitialBackoff: cfg.Resilience.Retry.InitialBackoff,
			MaxElapsed:     cfg.Cart.MaxElapsed,
		},
		Logger: logger,
		Meter:  meter,
	}
}

// SetupDependencies creates the store on top of storage and starts its rehydration.
func SetupDependencies(cfg *svcconfig.Config, storage kv.Storage, js jetstream.JetStream, meter metric.Meter, metricsHandler http.Handler, logger *slog.Logger) *Dependencies {
	store := cart.NewStore(storage, NewStoreOptions(cfg, logger, meter))
	return &Dependencies{
		Store:          store,
		Storage:        storage,
		Health:         grpcImpl.NewHealth(store, storage, cfg.Cart.PingTimeout, logger),
		JetStream:      js,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	}
}

// SetupHttpHandler builds the router with the cart provider in scope.
// Used by E2E tests to run the API without a listening server.
func SetupHttpHandler(deps *Dependencies, cfg *svcconfig.Config) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	if deps.MetricsHandler != nil && cfg.Telemetry.Metrics.Enabled {
		mux.Handle(cfg.Telemetry.Metrics.Path, deps.MetricsHandler)
	}
	mux.Group(func(r chi.Router) {
		r.Use(cart.Provider(deps.Store))
		wireRoutes(r, deps, cfg)
	})
	return otelhttp.NewHandler(mux, "cart-http")
}

func wireRoutes(r chi.Router, deps *Dependencies, cfg *svcconfig.Config) {
	decoder := web.NewDecoder(cfg.HTTPServer.MaxBodyBytes)
	rest.NewHandler(decoder, deps.Storage, cfg.Cart.PingTimeout, deps.Logger).RegisterRoutes(r)
}

// SetupHttpServer creates the HTTP server for the cart API.
func SetupHttpServer(deps *Dependencies, cfg *svcconfig.Config) *http.Server {
	return server.NewHTTPServer(server.HTTPConfigFrom(cfg.HTTPServer), SetupHttpHandler(deps, cfg))
}

// SetupGrpcServer creates the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, deps.Health.Register)
}
