// Package leasegen orchestrates one lease generation request through its
// stages:
//
//	rate limit → challenge → input validation → generation → output validation → usage → render
//
// Each stage gates the next. The first failure ends the request with an
// *Error and no later stage runs.
package leasegen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/domain/lease"
	"github.com/leasegen/backend/internal/infrastructure/generation"
	"github.com/leasegen/backend/internal/infrastructure/logger"
	"github.com/leasegen/backend/internal/infrastructure/ratelimit"
)

const defaultGenerationTimeout = 90 * time.Second

// RateLimiter decides whether a caller may proceed.
type RateLimiter interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
}

// ChallengeVerifier checks a proof-of-humanity token.
type ChallengeVerifier interface {
	Required() bool
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type InputValidator interface {
	ValidateInput(raw []byte) (*lease.Input, error)
}

type OutputValidator interface {
	ValidateOutput(raw []byte) (*lease.Output, error)
}

// UsageRecorder receives the accounting of every generation.
type UsageRecorder interface {
	LogTokenUsage(ctx context.Context, usage generation.TokenUsage, backend, model string)
	TrackDailyCost(ctx context.Context, cost decimal.Decimal) decimal.Decimal
	RecordOutcome(ctx context.Context, outcome string)
	RecordGenerationDuration(ctx context.Context, backend string, d time.Duration)
}

// Renderer turns a validated lease into document bytes.
type Renderer interface {
	Render(ctx context.Context, doc *lease.Output) ([]byte, error)
	ContentType() string
	Extension() string
}

// Request is one generation call.
type Request struct {
	// CallerKey buckets the rate limit, usually the client IP.
	CallerKey string
	RemoteIP  string
	Body      []byte
}

// Document is a successful result.
type Document struct {
	Data        []byte
	ContentType string
	Filename    string
	Decision    ratelimit.Decision
}

// Dependencies are the collaborators of a Pipeline.
type Dependencies struct {
	RateLimiter     RateLimiter
	Verifier        ChallengeVerifier
	InputValidator  InputValidator
	Generator       generation.Generator
	OutputValidator OutputValidator
	Usage           UsageRecorder
	Renderer        Renderer
	Logger          *zap.Logger
}

// Pipeline runs lease generation requests.
type Pipeline struct {
	deps              Dependencies
	generationTimeout time.Duration
	backend           string
	model             string
	now               func() time.Time
	tracer            trace.Tracer
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithGenerationTimeout bounds the backend call. The bound applies even
// after the client has gone away.
func WithGenerationTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.generationTimeout = d
		}
	}
}

// WithBackend names the generation backend in logs and metrics.
func WithBackend(backend, model string) Option {
	return func(p *Pipeline) {
		p.backend = backend
		p.model = model
	}
}

// WithClock replaces the clock used to stamp document filenames.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(deps Dependencies, opts ...Option) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	p := &Pipeline{
		deps:              deps,
		generationTimeout: defaultGenerationTimeout,
		now:               time.Now,
		tracer:            otel.Tracer("leasegen"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate runs every stage for req. Failures are always *Error.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Document, error) {
	ctx, span := p.tracer.Start(ctx, "leasegen.generate")
	defer span.End()

	doc, err := p.run(ctx, req)
	p.deps.Usage.RecordOutcome(ctx, Outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return doc, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Document, error) {
	// Rate limit.
	var decision ratelimit.Decision
	err := p.stage(ctx, "rate_limit", func(ctx context.Context) error {
		var err error
		decision, err = p.deps.RateLimiter.Check(ctx, req.CallerKey)
		return err
	})
	if err != nil {
		return nil, infrastructure("rate_limit", "rate limiter unavailable", err)
	}
	fail := func(e *Error) error {
		e.Decision = &decision
		return e
	}
	if !decision.Allowed {
		return nil, fail(&Error{Kind: KindQuota, Stage: "rate_limit", Message: "Rate limit exceeded"})
	}

	// Challenge.
	if p.deps.Verifier.Required() {
		token := captchaToken(req.Body)
		if token == "" {
			return nil, fail(&Error{Kind: KindClient, Stage: "challenge", Message: "Captcha token is required"})
		}

		var ok bool
		err := p.stage(ctx, "challenge", func(ctx context.Context) error {
			var err error
			ok, err = p.deps.Verifier.Verify(ctx, token, req.RemoteIP)
			return err
		})
		if err != nil {
			return nil, fail(infrastructure("challenge", "captcha verification unavailable", err))
		}
		if !ok {
			return nil, fail(&Error{Kind: KindAuthorization, Stage: "challenge", Message: "Captcha verification failed"})
		}
	}

	// Input validation.
	var input *lease.Input
	err = p.stage(ctx, "validate_input", func(context.Context) error {
		var err error
		input, err = p.deps.InputValidator.ValidateInput(req.Body)
		return err
	})
	if err != nil {
		var verr *lease.ValidationError
		if errors.As(err, &verr) {
			return nil, fail(&Error{Kind: KindClient, Stage: "validate_input", Message: "Invalid lease input", Fields: verr.Fields, Cause: err})
		}
		return nil, fail(infrastructure("validate_input", "input validation failed", err))
	}

	// Generation runs detached from the request so a client disconnect
	// does not abort a paid backend call.
	var result *generation.Result
	err = p.stage(ctx, "generate", func(ctx context.Context) error {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.generationTimeout)
		defer cancel()

		start := time.Now()
		var err error
		result, err = p.deps.Generator.Generate(genCtx, input)
		p.deps.Usage.RecordGenerationDuration(ctx, p.backend, time.Since(start))
		return err
	})
	if err != nil {
		return nil, fail(infrastructure("generate", "lease generation failed", err))
	}

	// Output validation.
	var output *lease.Output
	err = p.stage(ctx, "validate_output", func(context.Context) error {
		var err error
		output, err = p.deps.OutputValidator.ValidateOutput(result.LeaseData)
		return err
	})
	if err != nil {
		var verr *lease.ValidationError
		if errors.As(err, &verr) {
			return nil, fail(&Error{
				Kind:    KindGenerationIntegrity,
				Stage:   "validate_output",
				Message: "The generated lease was incomplete. Please submit the request again.",
				Fields:  verr.Fields,
				Cause:   err,
			})
		}
		return nil, fail(infrastructure("validate_output", "output validation failed", err))
	}

	// Usage.
	backend, model := result.Backend, result.Model
	if backend == "" {
		backend, model = p.backend, p.model
	}
	p.deps.Usage.LogTokenUsage(ctx, result.Usage, backend, model)
	p.deps.Usage.TrackDailyCost(ctx, result.EstimatedCost)

	// Render.
	var data []byte
	err = p.stage(ctx, "render", func(ctx context.Context) error {
		var err error
		data, err = p.deps.Renderer.Render(context.WithoutCancel(ctx), output)
		return err
	})
	if err != nil {
		return nil, fail(infrastructure("render", "document rendering failed", err))
	}

	logger.Bind(ctx, p.deps.Logger).Info("Lease generated",
		zap.String("backend", backend),
		zap.Int("tenants", len(output.Tenants)),
		zap.Int("clauses", len(output.Clauses)),
		zap.Int("bytes", len(data)),
		zap.Int("remaining", decision.Remaining),
	)

	return &Document{
		Data:        data,
		ContentType: p.deps.Renderer.ContentType(),
		Filename:    fmt.Sprintf("lease-%d.%s", p.now().Unix(), p.deps.Renderer.Extension()),
		Decision:    decision,
	}, nil
}

// infrastructure wraps a dependency failure with the stack of the stage
// that observed it.
func infrastructure(stage, message string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Stage: stage, Message: message, Cause: errors.WithStack(err)}
}

// stage runs fn inside a child span named after the stage.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "leasegen."+name, trace.WithAttributes(attribute.String("lease.stage", name)))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return err
	}
	return nil
}

// captchaToken reads the challenge token without validating the rest of the body.
func captchaToken(body []byte) string {
	var probe struct {
		CaptchaToken any `json:"captchaToken"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	token, _ := probe.CaptchaToken.(string)
	return token
}
