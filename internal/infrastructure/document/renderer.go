// Package document renders a validated lease into the binary document
// returned to the caller.
//
// Two formats are available and one is selected at startup:
//   - DocxRenderer builds a WordprocessingML package in process
//   - PDFRenderer prints an HTML rendition through headless Chrome
//
// Both fill fixed templates; the lease prose comes from the generated clauses.
package document

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/domain/lease"
	"github.com/leasegen/backend/internal/infrastructure/config"
)

// Renderer turns a lease into document bytes.
type Renderer interface {
	Render(ctx context.Context, doc *lease.Output) ([]byte, error)
	// ContentType is the MIME type of rendered documents.
	ContentType() string
	// Extension is the file extension without the dot.
	Extension() string
}

// RenderError represents an error during document rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeTemplate      = "TEMPLATE_FAILED"
)

func newRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// New returns the renderer for cfg.Format. The returned closer releases
// browser resources and is a no-op for docx.
func New(cfg config.DocumentConfig, logger *zap.Logger) (Renderer, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Format {
	case "", FormatDocx:
		r, err := NewDocxRenderer()
		if err != nil {
			return nil, nil, err
		}
		return r, func() error { return nil }, nil
	case FormatPDF:
		r, err := NewPDFRenderer(&PDFConfig{
			RemoteURL:      cfg.ChromeRemoteURL,
			NoSandbox:      cfg.ChromeNoSandbox,
			DefaultTimeout: cfg.RenderTimeout,
			Logger:         logger.Named("document"),
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, errors.Errorf("unsupported document format: %s", cfg.Format)
	}
}

const (
	FormatDocx = "docx"
	FormatPDF  = "pdf"
)
