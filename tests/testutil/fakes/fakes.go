// Package fakes provides call-counting stand-ins for the pipeline's
// external collaborators.
package fakes

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leasegen/backend/internal/domain/lease"
	"github.com/leasegen/backend/internal/infrastructure/generation"
)

// Verifier answers challenge checks with a fixed verdict.
type Verifier struct {
	Require bool
	Accept  bool
	Err     error
	calls   atomic.Int32
}

func (v *Verifier) Required() bool { return v.Require }

func (v *Verifier) Verify(context.Context, string, string) (bool, error) {
	v.calls.Add(1)
	return v.Accept, v.Err
}

func (v *Verifier) Calls() int { return int(v.calls.Load()) }

// Generator returns Reply as the raw lease data. When Reply is nil it
// echoes the input back as a complete output with one clause.
type Generator struct {
	Reply []byte
	Usage generation.TokenUsage
	Cost  decimal.Decimal
	Err   error
	// Delay holds the call open until it elapses or ctx ends.
	Delay time.Duration

	calls   atomic.Int32
	mu      sync.Mutex
	lastCtx context.Context
}

func (g *Generator) Generate(ctx context.Context, input *lease.Input) (*generation.Result, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.lastCtx = ctx
	g.mu.Unlock()

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.Err != nil {
		return nil, g.Err
	}

	data := g.Reply
	if data == nil {
		var err error
		data, err = json.Marshal(lease.Output{
			Terms:       input.Terms,
			Clauses:     []lease.Clause{{Heading: "Rent", Body: "Rent is due monthly."}},
			Disclaimers: []string{"Not legal advice."},
		})
		if err != nil {
			return nil, err
		}
	}
	return &generation.Result{
		LeaseData:     data,
		Usage:         g.Usage,
		EstimatedCost: g.Cost,
		Backend:       "fake",
		Model:         "fake-1",
	}, nil
}

func (g *Generator) Calls() int { return int(g.calls.Load()) }

// LastContext is the context of the most recent call.
func (g *Generator) LastContext() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCtx
}

// Renderer returns Data for every lease.
type Renderer struct {
	Data []byte
	Err  error
	Ext  string

	calls atomic.Int32
}

func (r *Renderer) Render(context.Context, *lease.Output) ([]byte, error) {
	r.calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Data, nil
}

func (r *Renderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (r *Renderer) Extension() string {
	if r.Ext == "" {
		return "docx"
	}
	return r.Ext
}

func (r *Renderer) Calls() int { return int(r.calls.Load()) }

// Usage records what the pipeline reported.
type Usage struct {
	mu       sync.Mutex
	Tokens   []generation.TokenUsage
	Costs    []decimal.Decimal
	Outcomes []string
}

func (u *Usage) LogTokenUsage(_ context.Context, usage generation.TokenUsage, _, _ string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Tokens = append(u.Tokens, usage)
}

func (u *Usage) TrackDailyCost(_ context.Context, cost decimal.Decimal) decimal.Decimal {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Costs = append(u.Costs, cost)
	total := decimal.Zero
	for _, c := range u.Costs {
		total = total.Add(c)
	}
	return total
}

func (u *Usage) RecordOutcome(_ context.Context, outcome string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Outcomes = append(u.Outcomes, outcome)
}

func (u *Usage) RecordGenerationDuration(context.Context, string, time.Duration) {}

// LastOutcome returns the most recent outcome label.
func (u *Usage) LastOutcome() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.Outcomes) == 0 {
		return ""
	}
	return u.Outcomes[len(u.Outcomes)-1]
}
