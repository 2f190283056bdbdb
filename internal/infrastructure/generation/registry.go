package generation

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/infrastructure/config"
)

// Factory builds the Completer for one backend.
type Factory interface {
	Name() string
	Create(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (Completer, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc struct {
	BackendName string
	Fn          func(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (Completer, error)
}

func (f FactoryFunc) Name() string { return f.BackendName }

func (f FactoryFunc) Create(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (Completer, error) {
	return f.Fn(ctx, cfg, logger)
}

// Registry holds the backend factories available at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for its backend name.
func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Name()] = factory
}

func (r *Registry) Create(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (Completer, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown generation backend: %s", cfg.Backend)
	}
	return factory.Create(ctx, cfg, logger)
}

// ListRegistered returns the registered backend names in sorted order.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers the openai, ark, qwen and echo backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FactoryFunc{BackendName: "openai", Fn: func(_ context.Context, cfg config.GenerationConfig, _ *zap.Logger) (Completer, error) {
		return NewOpenAICompleter(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	}})
	r.Register(FactoryFunc{BackendName: "ark", Fn: func(ctx context.Context, cfg config.GenerationConfig, _ *zap.Logger) (Completer, error) {
		return NewArkCompleter(ctx, ArkConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	}})
	r.Register(FactoryFunc{BackendName: "qwen", Fn: func(ctx context.Context, cfg config.GenerationConfig, _ *zap.Logger) (Completer, error) {
		return NewQwenCompleter(ctx, QwenConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	}})
	r.Register(FactoryFunc{BackendName: "echo", Fn: func(context.Context, config.GenerationConfig, *zap.Logger) (Completer, error) {
		return EchoCompleter{}, nil
	}})
	return r
}

// New builds the configured Generator from registry, or DefaultRegistry
// when registry is nil.
func New(ctx context.Context, cfg config.GenerationConfig, registry *Registry, logger *zap.Logger) (*ChatGenerator, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	completer, err := registry.Create(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Generation backend ready",
		zap.String("backend", cfg.Backend),
		zap.String("model", cfg.Model),
	)

	return NewChatGenerator(cfg.Backend, cfg.Model, completer, cfg.SystemPrompt, Pricing{
		PromptPerMillion:     cfg.PromptPricePerMillion,
		CompletionPerMillion: cfg.CompletionPricePerMillion,
	}, logger.Named("generation")), nil
}
