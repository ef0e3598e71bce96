// Package main runs the cart service: the cart store behind an HTTP API, a gRPC
// health endpoint and an optional cart-updated event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/gomarketplace/internal/app"
	"github.com/abgdnv/gomarketplace/internal/config"
	"github.com/abgdnv/gomarketplace/internal/events"
	"github.com/abgdnv/gomarketplace/pkg/bootstrap"
	"github.com/abgdnv/gomarketplace/pkg/config/configloader"
	"github.com/abgdnv/gomarketplace/pkg/messaging"
	pnats "github.com/abgdnv/gomarketplace/pkg/nats"
	"github.com/abgdnv/gomarketplace/pkg/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName         = "cart"
	healthCheckInterval = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, opens storage, builds the store and serves until ctx ends.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer shutdownWithTimeout(logger, "tracer provider", cfg.Shutdown.Timeout, tp.Shutdown)
	}

	var meter metric.Meter = noop.NewMeterProvider().Meter(serviceName)
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer shutdownWithTimeout(logger, "meter provider", cfg.Shutdown.Timeout, mp.Shutdown)
		meter = mp.Meter(serviceName)
		metricsHandler = handler
	}

	var resources app.Resources
	defer resources.Close()
	storage, js, err := app.OpenStorage(ctx, cfg, &resources, logger)
	if err != nil {
		return fmt.Errorf("failed to open cart storage: %w", err)
	}

	if cfg.Events.Enabled {
		if err := pnats.EnsureStream(ctx, js, cfg.Events.Stream, messaging.CartSubjects); err != nil {
			return err
		}
	}

	deps := app.SetupDependencies(cfg, storage, js, meter, metricsHandler, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		deps.Health.Run(gCtx, healthCheckInterval)
		return nil
	})

	if cfg.GRPC.Enabled {
		g.Go(func() error {
			grpcAddr := ":" + cfg.GRPC.Port
			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on gRPC port: %w", err)
			}
			logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down gRPC server...")
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
				logger.Info("gRPC server stopped gracefully.")
				return nil
			case <-time.After(cfg.Shutdown.Timeout):
				logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
				grpcServer.Stop()
				return fmt.Errorf("grpc server graceful stop timed out")
			}
		})
	}

	if cfg.Events.Enabled {
		g.Go(func() error {
			logger.Info("Forwarding cart events", "stream", cfg.Events.Stream, "subject", messaging.CartUpdatedSubject)
			events.Forward(gCtx, deps.Store, pnats.NewNatsPublisher(js), logger)
			return nil
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	groupErr := g.Wait()

	// servers are down, persist what is left before the connections close
	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()
	if err := deps.Store.Close(closeCtx); err != nil {
		logger.Error("Cart was not fully persisted on shutdown", "error", err, "status", deps.Store.SyncStatus())
	} else {
		logger.Info("Cart persisted and closed")
	}

	if groupErr != nil && !errors.Is(groupErr, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", groupErr)
	}
	return nil
}

func shutdownWithTimeout(logger *slog.Logger, name string, timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("Failed to shut down "+name, "error", err)
	}
}
