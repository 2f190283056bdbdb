package document

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/domain/lease"
)

const (
	defaultChromeTimeout = 30 * time.Second
	// US Letter with one-inch margins, in inches.
	paperWidth  = 8.5
	paperHeight = 11.0
	margin      = 1.0
)

// PDFConfig contains configuration for the chromedp renderer
type PDFConfig struct {
	// DefaultTimeout bounds one rendering
	DefaultTimeout time.Duration
	// RemoteURL is the DevTools URL of a running Chrome. When empty a local
	// headless browser is launched.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	Logger    *zap.Logger
}

// PDFRenderer prints the HTML rendition of a lease through the Chrome
// DevTools Protocol.
type PDFRenderer struct {
	config      *PDFConfig
	logger      *zap.Logger
	page        *template.Template
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewPDFRenderer(cfg *PDFConfig) (*PDFRenderer, error) {
	if cfg == nil {
		cfg = &PDFConfig{}
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = defaultChromeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("lease.html.tmpl").
		Funcs(template.FuncMap{"inc": inc}).
		ParseFS(templates, "templates/lease.html.tmpl")
	if err != nil {
		return nil, newRenderError(ErrCodeTemplate, "parse pdf template", err)
	}

	r := &PDFRenderer{config: cfg, logger: logger, page: tmpl}
	r.initAllocator()
	return r, nil
}

func (r *PDFRenderer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// HTML returns the page that Render prints.
func (r *PDFRenderer) HTML(doc *lease.Output) (string, error) {
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, newView(doc)); err != nil {
		return "", newRenderError(ErrCodeTemplate, "fill pdf template", err)
	}
	return buf.String(), nil
}

func (r *PDFRenderer) Render(ctx context.Context, doc *lease.Output) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.DefaultTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// The browser context does not inherit ctx, so stop it when ctx ends.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginRight(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, newRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering timed out after %v", r.config.DefaultTimeout), err)
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, newRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, newRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdf) == 0 {
		return nil, newRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	r.logger.Info("PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return FormatPDF }

// Close shuts down the browser allocator.
func (r *PDFRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
