package kv

import (
	"context"
	"errors"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/abgdnv/gomarketplace/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// Resilient wraps a Storage in a circuit breaker, so a failing backend is
// not hammered while it recovers.
type Resilient struct {
	next    Storage
	breaker *gobreaker.CircuitBreaker[string]
}

// NewResilient creates a circuit-breaking wrapper around next.
// A missing key is a valid answer and does not count as a failure.
func NewResilient(name string, next Storage, cfg config.CircuitBreakerConfig) *Resilient {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, carterrors.ErrKeyNotFound) ||
				errors.Is(err, context.Canceled)
		},
	}
	return &Resilient{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[string](st),
	}
}

// Get reads through the breaker. Returns gobreaker.ErrOpenState while the breaker is open.
func (r *Resilient) Get(ctx context.Context, key string) (string, error) {
	return r.breaker.Execute(func() (string, error) {
		return r.next.Get(ctx, key)
	})
}

// Set writes through the breaker.
func (r *Resilient) Set(ctx context.Context, key, value string) error {
	_, err := r.breaker.Execute(func() (string, error) {
		return "", r.next.Set(ctx, key, value)
	})
	return err
}

// Ping bypasses the breaker so probes report the backend's real state.
func (r *Resilient) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// State returns the current breaker state.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}
