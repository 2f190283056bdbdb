package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/leasegen/backend/internal/infrastructure/config"
	"github.com/leasegen/backend/internal/infrastructure/telemetry"
)

func disabledConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "leasegen-test",
	}
}

// collect reads every metric recorded on reader, keyed by name.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := telemetry.NewMeterProvider(ctx, disabledConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	cfg := disabledConfig()
	cfg.Enabled = true
	cfg.Insecure = true
	cfg.MetricsExportInterval = time.Second

	// The gRPC exporter connects lazily, so construction succeeds without a collector.
	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = mp.Shutdown(shutdownCtx)
}

func TestCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	counter, err := telemetry.NewCounter(meter, "test.counter", "Test counter", "1")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 5, attribute.String("kind", "a"))
	counter.Inc(ctx, attribute.String("kind", "a"))
	counter.Inc(ctx, attribute.String("kind", "b"))

	sum, ok := collect(t, reader)["test.counter"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value("kind")
		totals[kind.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"a": 6, "b": 1}, totals)
}

func TestHistogram_CustomBoundaries(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "test.duration",
		Unit:       "s",
		Boundaries: telemetry.GenerationDurationBuckets,
	})
	require.NoError(t, err)

	h.RecordDuration(context.Background(), 3*time.Second)

	hist, ok := collect(t, reader)["test.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, telemetry.GenerationDurationBuckets, hist.DataPoints[0].Bounds)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, disabledConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))

	// Span profiles need a real provider.
	tp.EnableSpanProfiles()
	assert.False(t, tp.IsSpanProfilesEnabled())
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestTracerProvider_SpanProfilesIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	cfg := disabledConfig()
	cfg.Enabled = true
	cfg.Insecure = true
	cfg.SamplingRatio = 0.5

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tp.EnableSpanProfiles()
		}()
	}
	wg.Wait()
	assert.True(t, tp.IsSpanProfilesEnabled())
}

func TestNewProfiler(t *testing.T) {
	logger := zaptest.NewLogger(t)

	p, err := telemetry.NewProfiler(disabledConfig(), logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	cfg := disabledConfig()
	cfg.ProfilingEnabled = true
	_, err = telemetry.NewProfiler(cfg, logger)
	assert.Error(t, err, "server address is required")

	cfg.ProfilingServer = "http://localhost:4040"
	cfg.ServiceName = ""
	_, err = telemetry.NewProfiler(cfg, logger)
	assert.Error(t, err, "service name is required")
}
