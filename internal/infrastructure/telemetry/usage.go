package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/infrastructure/generation"
	"github.com/leasegen/backend/internal/infrastructure/logger"
)

// UsageTracker records token usage and the spend of the current UTC
// calendar day. Nothing it returns gates a request; the configured budget
// only produces a warning.
type UsageTracker struct {
	logger *zap.Logger
	budget decimal.Decimal
	now    func() time.Time

	tokens    *Counter
	cost      *FloatCounter
	outcomes  *Counter
	durations *Histogram

	mu       sync.Mutex
	day      string
	dayTotal decimal.Decimal
	warned   bool
}

// UsageOption configures a UsageTracker
type UsageOption func(*UsageTracker)

// WithClock replaces the wall clock used for day rollover.
func WithClock(now func() time.Time) UsageOption {
	return func(u *UsageTracker) { u.now = now }
}

// WithDailyBudget sets the informational daily spend threshold in USD.
// A zero budget disables the warning.
func WithDailyBudget(budget decimal.Decimal) UsageOption {
	return func(u *UsageTracker) { u.budget = budget }
}

func NewUsageTracker(meter metric.Meter, logger *zap.Logger, opts ...UsageOption) (*UsageTracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &UsageTracker{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}

	var err error
	if u.tokens, err = NewCounter(meter, "lease.tokens", "Tokens consumed by lease generation", "{tokens}"); err != nil {
		return nil, err
	}
	if u.cost, err = NewFloatCounter(meter, "lease.cost", "Estimated spend on lease generation", "USD"); err != nil {
		return nil, err
	}
	if u.outcomes, err = NewCounter(meter, "lease.requests", "Lease generation requests by outcome", "{requests}"); err != nil {
		return nil, err
	}
	u.durations, err = NewHistogram(meter, HistogramOpts{
		Name:        "lease.generation.duration",
		Description: "Latency of generation backend calls",
		Unit:        "s",
		Boundaries:  GenerationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// LogTokenUsage emits one structured record of the call's token usage.
func (u *UsageTracker) LogTokenUsage(ctx context.Context, usage generation.TokenUsage, backend, model string) {
	logger.Bind(ctx, u.logger).Info("Token usage",
		zap.String("backend", backend),
		zap.String("model", model),
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.Int("total_tokens", usage.TotalTokens),
	)

	b, m := AttrBackend.String(backend), AttrModel.String(model)
	u.tokens.Add(ctx, int64(usage.PromptTokens), b, m, AttrTokenKind.String("prompt"))
	u.tokens.Add(ctx, int64(usage.CompletionTokens), b, m, AttrTokenKind.String("completion"))
}

// TrackDailyCost adds cost to today's total and returns the new total. The
// total restarts at zero on the first call of each UTC day.
func (u *UsageTracker) TrackDailyCost(ctx context.Context, cost decimal.Decimal) decimal.Decimal {
	today := u.now().UTC().Format(time.DateOnly)

	u.mu.Lock()
	if today != u.day {
		u.day = today
		u.dayTotal = decimal.Zero
		u.warned = false
	}
	u.dayTotal = u.dayTotal.Add(cost)
	total := u.dayTotal
	warn := u.budget.IsPositive() && total.GreaterThan(u.budget) && !u.warned
	if warn {
		u.warned = true
	}
	u.mu.Unlock()

	u.cost.Add(ctx, cost.InexactFloat64())

	log := logger.Bind(ctx, u.logger)
	log.Info("Daily generation cost",
		zap.String("day", today),
		zap.String("cost_usd", cost.String()),
		zap.String("day_total_usd", total.String()),
	)
	if warn {
		log.Warn("Daily generation budget exceeded",
			zap.String("budget_usd", u.budget.String()),
			zap.String("day_total_usd", total.String()),
		)
	}
	return total
}

// RecordOutcome counts one finished request by its outcome label.
func (u *UsageTracker) RecordOutcome(ctx context.Context, outcome string) {
	u.outcomes.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordGenerationDuration records the latency of one backend call.
func (u *UsageTracker) RecordGenerationDuration(ctx context.Context, backend string, d time.Duration) {
	u.durations.RecordDuration(ctx, d, AttrBackend.String(backend))
}
