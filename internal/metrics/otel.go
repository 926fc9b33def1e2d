package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	gaugeOnce sync.Once
	gaugeErr  error
)

// InitOTelMetrics registers an observable gauge that mirrors the
// SQLite invocation totals. Call after the global meter provider is
// installed; registering more than once is a no-op.
func InitOTelMetrics() error {
	gaugeOnce.Do(func() {
		_, gaugeErr = otel.Meter("wikiscout/metrics").Int64ObservableGauge(
			"wikiscout.invocations.total",
			metric.WithDescription("Cumulative total invocations by mode (query, refine, webui)"),
			metric.WithUnit("{invocations}"),
			metric.WithInt64Callback(observeInvocations),
		)
		if gaugeErr != nil {
			log.Printf("metrics: failed to register invocation gauge: %v", gaugeErr)
		}
	})
	return gaugeErr
}

// observeInvocations emits one point per mode at collection time. A nil
// stats map (store unavailable) yields zeros, keeping the series present.
func observeInvocations(_ context.Context, observer metric.Int64Observer) error {
	totals := GetStats()
	for _, mode := range AllModes {
		observer.Observe(totals[mode], metric.WithAttributes(attribute.String("mode", string(mode))))
	}
	return nil
}

// ResetOTelForTesting clears gauge registration state between tests.
func ResetOTelForTesting() {
	gaugeOnce = sync.Once{}
	gaugeErr = nil
}
