package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leasegen/backend/internal/infrastructure/generation"
	"github.com/leasegen/backend/internal/infrastructure/logger"
	"github.com/leasegen/backend/internal/infrastructure/telemetry"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTracker(t *testing.T, opts ...telemetry.UsageOption) (*telemetry.UsageTracker, *sdkmetric.ManualReader, *observer.ObservedLogs) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	core, logs := observer.New(zapcore.DebugLevel)

	tracker, err := telemetry.NewUsageTracker(meter, zap.New(core), opts...)
	require.NoError(t, err)
	return tracker, reader, logs
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestUsageTracker_LogTokenUsage(t *testing.T) {
	tracker, reader, logs := newTracker(t)

	ctx := logger.WithRequestID(context.Background(), "req-1")
	tracker.LogTokenUsage(ctx, generation.TokenUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200}, "openai", "gpt-4o-mini")

	entries := logs.FilterMessage("Token usage").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "openai", fields["backend"])
	assert.Equal(t, "gpt-4o-mini", fields["model"])
	assert.Equal(t, int64(200), fields["total_tokens"])
	assert.Equal(t, "req-1", fields["request_id"])

	sum, ok := collect(t, reader)["lease.tokens"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byKind := map[string]int64{}
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value(telemetry.AttrTokenKind)
		byKind[kind.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"prompt": 120, "completion": 80}, byKind)
}

func TestUsageTracker_TrackDailyCost(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	tracker, reader, _ := newTracker(t, telemetry.WithClock(c.Now))
	ctx := context.Background()

	assert.True(t, d("0.25").Equal(tracker.TrackDailyCost(ctx, d("0.25"))))
	assert.True(t, d("0.40").Equal(tracker.TrackDailyCost(ctx, d("0.15"))))

	c.Set(time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC))
	assert.True(t, d("0.41").Equal(tracker.TrackDailyCost(ctx, d("0.01"))))

	// A new UTC day starts from zero.
	c.Set(time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC))
	assert.True(t, d("0.05").Equal(tracker.TrackDailyCost(ctx, d("0.05"))))

	// Day boundaries follow UTC, not the clock's zone.
	c.Set(time.Date(2026, 3, 2, 18, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)))
	assert.True(t, d("0.05").Equal(tracker.TrackDailyCost(ctx, d("0"))))

	sum, ok := collect(t, reader)["lease.cost"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.InDelta(t, 0.46, sum.DataPoints[0].Value, 1e-9)
}

func TestUsageTracker_BudgetOnlyWarns(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	tracker, _, logs := newTracker(t, telemetry.WithClock(c.Now), telemetry.WithDailyBudget(d("1")))
	ctx := context.Background()

	tracker.TrackDailyCost(ctx, d("0.9"))
	assert.Zero(t, logs.FilterMessage("Daily generation budget exceeded").Len())

	total := tracker.TrackDailyCost(ctx, d("0.2"))
	assert.True(t, d("1.1").Equal(total))
	assert.Equal(t, 1, logs.FilterMessage("Daily generation budget exceeded").Len())

	// Spend keeps accumulating past the budget, with a single warning per day.
	total = tracker.TrackDailyCost(ctx, d("5"))
	assert.True(t, d("6.1").Equal(total))
	assert.Equal(t, 1, logs.FilterMessage("Daily generation budget exceeded").Len())

	c.Set(c.Now().Add(24 * time.Hour))
	tracker.TrackDailyCost(ctx, d("2"))
	assert.Equal(t, 2, logs.FilterMessage("Daily generation budget exceeded").Len())
}

func TestUsageTracker_Concurrent(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	tracker, _, _ := newTracker(t, telemetry.WithClock(c.Now))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.TrackDailyCost(ctx, d("0.01"))
		}()
	}
	wg.Wait()

	assert.True(t, d("1.00").Equal(tracker.TrackDailyCost(ctx, decimal.Zero)))
}

func TestUsageTracker_Outcomes(t *testing.T) {
	tracker, reader, _ := newTracker(t)
	ctx := context.Background()

	tracker.RecordOutcome(ctx, "success")
	tracker.RecordOutcome(ctx, "success")
	tracker.RecordOutcome(ctx, "quota")
	tracker.RecordGenerationDuration(ctx, "echo", 1500*time.Millisecond)

	metrics := collect(t, reader)
	sum, ok := metrics["lease.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(telemetry.AttrOutcome)
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"success": 2, "quota": 1}, byOutcome)

	hist, ok := metrics["lease.generation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 1e-9)
}
