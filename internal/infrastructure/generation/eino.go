package generation

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EinoCompleter adapts an eino chat model (Ark, Qwen) to Completer.
type EinoCompleter struct {
	model einomodel.BaseChatModel
	opts  []einomodel.Option
}

func NewEinoCompleter(model einomodel.BaseChatModel, opts ...einomodel.Option) *EinoCompleter {
	return &EinoCompleter{model: model, opts: opts}
}

func (c *EinoCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	msg, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, c.opts...)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}
	if msg == nil {
		return nil, errors.New("empty reply")
	}

	completion := &Completion{Content: msg.Content}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		completion.Usage = TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return completion, nil
}

// ArkConfig configures the Volcengine Ark chat model
type ArkConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

func NewArkCompleter(ctx context.Context, cfg ArkConfig) (*EinoCompleter, error) {
	noRetry := 0
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		RetryTimes:  &noRetry,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ark chat model")
	}
	return NewEinoCompleter(chatModel), nil
}

// QwenConfig configures the DashScope Qwen chat model
type QwenConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

const defaultQwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

func NewQwenCompleter(ctx context.Context, cfg QwenConfig) (*EinoCompleter, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultQwenBaseURL
	}
	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     baseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		Timeout:     cfg.Timeout,
		HTTPClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create qwen chat model")
	}
	return NewEinoCompleter(chatModel), nil
}
