package metrics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newGaugeReader wires a manual reader behind the global meter provider
// and registers the invocation gauge against it.
func newGaugeReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	ResetOTelForTesting()
	t.Cleanup(ResetOTelForTesting)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	require.NoError(t, InitOTelMetrics())
	return reader
}

func newTestStoreForGauge(t *testing.T) *Store {
	t.Helper()

	ResetForTesting()
	t.Cleanup(ResetForTesting)

	store, err := NewStoreWithPath(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	SetStoreForTesting(store)
	return store
}

// collectGauge finds the invocation gauge in a fresh collection and
// returns its per-mode values.
func collectGauge(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "wikiscout.invocations.total" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok, "expected Gauge[int64], got %T", m.Data)

			values := make(map[string]int64)
			for _, dp := range gauge.DataPoints {
				for _, attr := range dp.Attributes.ToSlice() {
					if string(attr.Key) == "mode" {
						values[attr.Value.AsString()] = dp.Value
					}
				}
			}
			return values
		}
	}

	t.Fatal("metric wikiscout.invocations.total not found")
	return nil
}

func TestInvocationGaugeReportsStoredTotals(t *testing.T) {
	store := newTestStoreForGauge(t)
	for _, mode := range []Mode{ModeQuery, ModeQuery, ModeQuery, ModeRefine, ModeWebUI, ModeWebUI} {
		require.NoError(t, store.Increment(mode))
	}

	reader := newGaugeReader(t)
	assert.Equal(t, map[string]int64{"query": 3, "refine": 1, "webui": 2}, collectGauge(t, reader))
}

func TestInvocationGaugeTracksIncrements(t *testing.T) {
	store := newTestStoreForGauge(t)
	reader := newGaugeReader(t)

	assert.Equal(t, map[string]int64{"query": 0, "refine": 0, "webui": 0}, collectGauge(t, reader))

	require.NoError(t, store.Increment(ModeQuery))
	require.NoError(t, store.Increment(ModeQuery))
	require.NoError(t, store.Increment(ModeRefine))
	assert.Equal(t, map[string]int64{"query": 2, "refine": 1, "webui": 0}, collectGauge(t, reader))

	require.NoError(t, store.Increment(ModeWebUI))
	require.NoError(t, store.Increment(ModeWebUI))
	require.NoError(t, store.Increment(ModeWebUI))
	require.NoError(t, store.Increment(ModeQuery))
	assert.Equal(t, map[string]int64{"query": 3, "refine": 1, "webui": 3}, collectGauge(t, reader))
}

func TestInvocationGaugeWithoutStoreReportsZeros(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	reader := newGaugeReader(t)
	assert.Equal(t, map[string]int64{"query": 0, "refine": 0, "webui": 0}, collectGauge(t, reader))
}

func TestInvocationGaugeMetadata(t *testing.T) {
	newTestStoreForGauge(t)
	reader := newGaugeReader(t)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != "wikiscout/metrics" {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name != "wikiscout.invocations.total" {
				continue
			}
			assert.Equal(t, "Cumulative total invocations by mode (query, refine, webui)", m.Description)
			assert.Equal(t, "{invocations}", m.Unit)
			return
		}
	}
	t.Fatal("metric wikiscout.invocations.total not found")
}

func TestInvocationGaugeModeAttributes(t *testing.T) {
	store := newTestStoreForGauge(t)
	require.NoError(t, store.Increment(ModeQuery))
	require.NoError(t, store.Increment(ModeRefine))

	reader := newGaugeReader(t)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "wikiscout.invocations.total" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok, "expected Gauge[int64], got %T", m.Data)
			assert.Len(t, gauge.DataPoints, len(AllModes))

			for _, dp := range gauge.DataPoints {
				attrs := dp.Attributes.ToSlice()
				require.Len(t, attrs, 1)
				assert.Equal(t, "mode", string(attrs[0].Key))
			}
			return
		}
	}
	t.Fatal("metric wikiscout.invocations.total not found")
}
