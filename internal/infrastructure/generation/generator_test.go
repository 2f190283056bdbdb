package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/leasegen/backend/internal/domain/lease"
	"github.com/leasegen/backend/internal/infrastructure/config"
	"github.com/leasegen/backend/internal/infrastructure/schema"
	"github.com/leasegen/backend/tests/testutil"
)

type fakeCompleter struct {
	content string
	usage   TokenUsage
	err     error
	calls   int
	system  string
	user    string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (*Completion, error) {
	f.calls++
	f.system, f.user = system, user
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{Content: f.content, Usage: f.usage}, nil
}

func minimalInput(t *testing.T) *lease.Input {
	t.Helper()
	var in lease.Input
	require.NoError(t, json.Unmarshal(testutil.JSON(testutil.MinimalInput()), &in))
	in.CaptchaToken = "secret-token"
	return &in
}

func TestChatGenerator_Generate(t *testing.T) {
	fake := &fakeCompleter{
		content: "```json\n{\"clauses\":[]}\n```",
		usage:   TokenUsage{PromptTokens: 1000, CompletionTokens: 500},
	}
	pricing := Pricing{
		PromptPerMillion:     decimal.RequireFromString("2.50"),
		CompletionPerMillion: decimal.RequireFromString("10"),
	}
	g := NewChatGenerator("openai", "gpt-4o-mini", fake, "", pricing, zaptest.NewLogger(t))

	res, err := g.Generate(context.Background(), minimalInput(t))
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, DefaultSystemPrompt, fake.system)
	assert.NotContains(t, fake.user, "secret-token")
	assert.Contains(t, fake.user, "Ada Lovelace")

	assert.JSONEq(t, `{"clauses":[]}`, string(res.LeaseData))
	assert.Equal(t, 1500, res.Usage.TotalTokens)
	assert.True(t, decimal.RequireFromString("0.0075").Equal(res.EstimatedCost), res.EstimatedCost.String())
	assert.Equal(t, "openai", res.Backend)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestChatGenerator_Failures(t *testing.T) {
	t.Run("backend error is not retried", func(t *testing.T) {
		fake := &fakeCompleter{err: assert.AnError}
		g := NewChatGenerator("openai", "m", fake, "", Pricing{}, nil)

		_, err := g.Generate(context.Background(), minimalInput(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, fake.calls)
	})
}

func TestChatGenerator_EmptyCompletionPassesThrough(t *testing.T) {
	for _, content := range []string{"", "  ```json\n```  "} {
		fake := &fakeCompleter{content: content, usage: TokenUsage{PromptTokens: 100, CompletionTokens: 0}}
		g := NewChatGenerator("openai", "m", fake, "", Pricing{PromptPerMillion: decimal.NewFromInt(1)}, nil)

		res, err := g.Generate(context.Background(), minimalInput(t))
		require.NoError(t, err, "%q", content)
		assert.Empty(t, res.LeaseData)
		assert.Equal(t, 100, res.Usage.TotalTokens)
		assert.True(t, decimal.RequireFromString("0.0001").Equal(res.EstimatedCost), res.EstimatedCost.String())
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"```json {\"a\":1}```", `{"a":1}`},
		{"not json at all", "not json at all"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, string(stripFences(tc.in)), tc.in)
	}
}

func TestPricing_Cost(t *testing.T) {
	p := Pricing{
		PromptPerMillion:     decimal.RequireFromString("0.15"),
		CompletionPerMillion: decimal.RequireFromString("0.60"),
	}
	cost := p.Cost(TokenUsage{PromptTokens: 2_000_000, CompletionTokens: 1_000_000})
	assert.True(t, decimal.RequireFromString("0.9").Equal(cost), cost.String())
	assert.True(t, Pricing{}.Cost(TokenUsage{PromptTokens: 10}).IsZero())
}

func TestOpenAICompleter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL + "/v1",
		Model:     "gpt-test",
		MaxTokens: 256,
	})
	completion, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, completion.Content)
	assert.Equal(t, TokenUsage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17}, completion.Usage)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAICompleter_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"})
	_, err := c.Complete(context.Background(), "sys", "usr")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEchoBackend_ProducesValidOutput(t *testing.T) {
	g, err := New(context.Background(), config.GenerationConfig{Backend: "echo", Model: "echo"}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	in := minimalInput(t)
	res, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Positive(t, res.Usage.TotalTokens)

	validator, err := schema.NewOutputValidator()
	require.NoError(t, err)
	out, err := validator.ValidateOutput(res.LeaseData)
	require.NoError(t, err)

	assert.Equal(t, in.Terms.Landlord, out.Landlord)
	assert.Equal(t, "Ada Lovelace", out.Tenants.Primary().Name)
	assert.NotEmpty(t, out.Clauses)
	assert.NotEmpty(t, out.Disclaimers)

	again, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, string(res.LeaseData), string(again.LeaseData))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"ark", "echo", "openai", "qwen"}, r.ListRegistered())

	_, err := New(context.Background(), config.GenerationConfig{Backend: "nope"}, r, nil)
	assert.Error(t, err)

	fake := &fakeCompleter{content: `{}`}
	r.Register(FactoryFunc{BackendName: "fake", Fn: func(context.Context, config.GenerationConfig, *zap.Logger) (Completer, error) {
		return fake, nil
	}})
	g, err := New(context.Background(), config.GenerationConfig{Backend: "fake", Model: "f"}, r, nil)
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), minimalInput(t))
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
}
