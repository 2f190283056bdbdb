// Package challenge verifies proof-of-humanity tokens against an external
// siteverify service.
package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/infrastructure/config"
)

// Verifier checks challenge tokens.
type Verifier interface {
	// Required reports whether requests must carry a token.
	Required() bool
	// Verify asks the verification service about token. A false result
	// with a nil error means the service rejected the token.
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Disabled accepts every request without a token.
type Disabled struct{}

func (Disabled) Required() bool { return false }

func (Disabled) Verify(context.Context, string, string) (bool, error) { return true, nil }

// SiteVerifier speaks the siteverify protocol shared by Cloudflare
// Turnstile, hCaptcha and reCAPTCHA: a form POST of secret, response and
// remoteip answered by {"success": bool, "error-codes": [...]}.
type SiteVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *zap.Logger
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// SiteVerifierOption configures a SiteVerifier
type SiteVerifierOption func(*SiteVerifier)

// WithHTTPClient replaces the default instrumented client
func WithHTTPClient(client *http.Client) SiteVerifierOption {
	return func(v *SiteVerifier) {
		v.client = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) SiteVerifierOption {
	return func(v *SiteVerifier) {
		v.logger = logger
	}
}

func NewSiteVerifier(secret, verifyURL string, timeout time.Duration, opts ...SiteVerifierOption) *SiteVerifier {
	v := &SiteVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *SiteVerifier) Required() bool { return true }

func (v *SiteVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, errors.Wrap(err, "build siteverify request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "call siteverify")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return false, errors.Wrap(err, "decode siteverify response")
	}

	// The refusal itself is logged once by the HTTP layer.
	if !body.Success {
		v.logger.Debug("challenge token rejected", zap.Strings("error_codes", body.ErrorCodes))
	}
	return body.Success, nil
}

// New returns the verifier described by cfg
func New(cfg config.CaptchaConfig, logger *zap.Logger) (Verifier, error) {
	if !cfg.Required {
		return Disabled{}, nil
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("captcha secret key is required")
	}
	return NewSiteVerifier(cfg.SecretKey, cfg.VerifyURL, cfg.Timeout, WithLogger(logger)), nil
}
