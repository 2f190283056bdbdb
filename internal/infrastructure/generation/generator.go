// Package generation turns a validated lease input into raw lease output
// by prompting a generative text backend.
//
// The output is returned unvalidated. Backends are interchangeable behind
// Generator and are chosen once at startup through a Registry. Each call
// makes exactly one backend request and is never retried.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/domain/lease"
)

// Generator produces raw lease output for an input.
type Generator interface {
	Generate(ctx context.Context, input *lease.Input) (*Result, error)
}

// TokenUsage reports token consumption of one backend call.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Result is the raw backend output with its usage and estimated cost.
type Result struct {
	LeaseData     json.RawMessage
	Usage         TokenUsage
	EstimatedCost decimal.Decimal
	Backend       string
	Model         string
}

// Completion is the reply of one chat call.
type Completion struct {
	Content string
	Usage   TokenUsage
}

// Completer sends one system and one user message to a chat backend.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// Pricing converts token usage into an estimated spend in USD.
type Pricing struct {
	PromptPerMillion     decimal.Decimal
	CompletionPerMillion decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

func (p Pricing) Cost(u TokenUsage) decimal.Decimal {
	prompt := decimal.NewFromInt(int64(u.PromptTokens)).Mul(p.PromptPerMillion)
	completion := decimal.NewFromInt(int64(u.CompletionTokens)).Mul(p.CompletionPerMillion)
	return prompt.Add(completion).Div(million)
}

// ChatGenerator is the Generator for every chat backend.
type ChatGenerator struct {
	backend      string
	model        string
	completer    Completer
	systemPrompt string
	pricing      Pricing
	logger       *zap.Logger
}

func NewChatGenerator(backend, model string, completer Completer, systemPrompt string, pricing Pricing, logger *zap.Logger) *ChatGenerator {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatGenerator{
		backend:      backend,
		model:        model,
		completer:    completer,
		systemPrompt: systemPrompt,
		pricing:      pricing,
		logger:       logger,
	}
}

func (g *ChatGenerator) Generate(ctx context.Context, input *lease.Input) (*Result, error) {
	user, err := UserPrompt(input)
	if err != nil {
		return nil, err
	}

	completion, err := g.completer.Complete(ctx, g.systemPrompt, user)
	if err != nil {
		return nil, errors.Wrapf(err, "%s backend", g.backend)
	}

	// The content is returned unchecked, even when empty. Deciding whether
	// it is a lease is the output validator's job.
	data := stripFences(completion.Content)

	usage := completion.Usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	g.logger.Debug("lease generated",
		zap.String("backend", g.backend),
		zap.String("model", g.model),
		zap.Int("completion_bytes", len(data)),
	)

	return &Result{
		LeaseData:     json.RawMessage(data),
		Usage:         usage,
		EstimatedCost: g.pricing.Cost(usage),
		Backend:       g.backend,
		Model:         g.model,
	}, nil
}

func (g *ChatGenerator) Backend() string { return g.backend }

func (g *ChatGenerator) Model() string { return g.model }

// stripFences removes a surrounding ```json ... ``` block that chat models
// often wrap JSON replies in.
func stripFences(content string) []byte {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return bytes.TrimSpace([]byte(s))
}
