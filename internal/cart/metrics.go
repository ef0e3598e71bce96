package cart

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type storeMetrics struct {
	mutations         metric.Int64Counter
	writes            metric.Int64Counter
	writeFailures     metric.Int64Counter
	rehydrateFailures metric.Int64Counter
}

// newStoreMetrics registers the store counters on meter. A counter the meter
// refuses is logged and replaced by a no-op one, so metrics never block the cart.
func newStoreMetrics(meter metric.Meter, logger *slog.Logger) *storeMetrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("cart")
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Warn("Failed to create cart counter, recording disabled", "counter", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}
	return &storeMetrics{
		mutations:         counter("cart.mutations", "Number of committed cart mutations"),
		writes:            counter("cart.persist.writes", "Number of successful cart writes to storage"),
		writeFailures:     counter("cart.persist.failures", "Number of cart writes abandoned after retries"),
		rehydrateFailures: counter("cart.rehydrate.failures", "Number of rehydrations that fell back to an empty cart"),
	}
}

func (m *storeMetrics) mutation(ctx context.Context, op string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
