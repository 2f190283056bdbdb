package challenge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leasegen/backend/internal/infrastructure/config"
)

func siteverifyServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-secret", r.PostForm.Get("secret"))
		assert.Equal(t, "tok-123", r.PostForm.Get("response"))
		assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSiteVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted token", func(t *testing.T) {
		srv, calls := siteverifyServer(t, http.StatusOK, `{"success":true,"hostname":"example.com"}`)
		v := NewSiteVerifier("test-secret", srv.URL, time.Second, WithLogger(zaptest.NewLogger(t)))

		ok, err := v.Verify(ctx, "tok-123", "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, v.Required())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("rejected token", func(t *testing.T) {
		srv, _ := siteverifyServer(t, http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`)
		core, recorded := observer.New(zapcore.DebugLevel)
		v := NewSiteVerifier("test-secret", srv.URL, time.Second, WithLogger(zap.New(core)))

		ok, err := v.Verify(ctx, "tok-123", "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, ok)

		// only a debug trace; the refusal is reported by the caller
		require.Equal(t, 1, recorded.Len())
		entry := recorded.All()[0]
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		assert.Equal(t, []any{"invalid-input-response"}, entry.ContextMap()["error_codes"])
		assert.Zero(t, recorded.FilterLevelExact(zapcore.InfoLevel).Len())
	})

	t.Run("service error is an infrastructure failure", func(t *testing.T) {
		srv, _ := siteverifyServer(t, http.StatusBadGateway, `upstream down`)
		v := NewSiteVerifier("test-secret", srv.URL, time.Second)

		_, err := v.Verify(ctx, "tok-123", "203.0.113.7")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("malformed reply", func(t *testing.T) {
		srv, _ := siteverifyServer(t, http.StatusOK, `<html>`)
		v := NewSiteVerifier("test-secret", srv.URL, time.Second)

		_, err := v.Verify(ctx, "tok-123", "203.0.113.7")
		assert.Error(t, err)
	})

	t.Run("unreachable service", func(t *testing.T) {
		v := NewSiteVerifier("test-secret", "http://127.0.0.1:1/siteverify", time.Second)
		_, err := v.Verify(ctx, "tok-123", "")
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	v, err := New(config.CaptchaConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, v.Required())

	ok, err := v.Verify(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = New(config.CaptchaConfig{Required: true}, zaptest.NewLogger(t))
	assert.Error(t, err)

	v, err = New(config.CaptchaConfig{Required: true, SecretKey: "s", VerifyURL: "http://localhost", Timeout: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, v.Required())
}
