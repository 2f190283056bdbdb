package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/application/leasegen"
	"github.com/leasegen/backend/internal/infrastructure/logger"
	"github.com/leasegen/backend/internal/infrastructure/ratelimit"
	"github.com/leasegen/backend/internal/interfaces/http/dto"
)

// Rate limit response headers
const (
	HeaderRateLimitLimit     = "X-Rate-Limit-Limit"
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRateLimitReset     = "X-Rate-Limit-Reset"
)

// LeaseGenerator runs one generation request end to end
type LeaseGenerator interface {
	Generate(ctx context.Context, req leasegen.Request) (*leasegen.Document, error)
}

// LeaseHandler serves the lease generation endpoint
type LeaseHandler struct {
	pipeline   LeaseGenerator
	production bool
	logger     *zap.Logger
}

// LeaseHandlerOption configures a LeaseHandler
type LeaseHandlerOption func(*LeaseHandler)

// WithProduction hides internal failure details from responses
func WithProduction(production bool) LeaseHandlerOption {
	return func(h *LeaseHandler) { h.production = production }
}

// WithLogger sets the logger used when no request-scoped logger is present
func WithLogger(logger *zap.Logger) LeaseHandlerOption {
	return func(h *LeaseHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(pipeline LeaseGenerator, opts ...LeaseHandlerOption) *LeaseHandler {
	h := &LeaseHandler{
		pipeline: pipeline,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GenerateLease handles POST /api/generate-lease. The response body is the
// rendered document on success and a dto.ErrorResponse otherwise.
func (h *LeaseHandler) GenerateLease(c *gin.Context) {
	callerKey := c.ClientIP()
	c.Request = c.Request.WithContext(logger.WithCallerKey(c.Request.Context(), callerKey))

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.rejectBody(c, err)
		return
	}

	doc, err := h.pipeline.Generate(c.Request.Context(), leasegen.Request{
		CallerKey: callerKey,
		RemoteIP:  callerKey,
		Body:      body,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	setRateLimitHeaders(c, doc.Decision)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// Preflight answers CORS preflight requests with an empty 200
func (h *LeaseHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// rejectBody answers requests whose body could not be read. These never
// reach the pipeline and consume no quota.
func (h *LeaseHandler) rejectBody(c *gin.Context, err error) {
	status, body := http.StatusBadRequest, dto.NewErrorResponse(dto.ErrUnreadableBody, "", nil)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		body = dto.NewErrorResponse(dto.ErrRequestTooLarge, dto.MsgRequestTooLarge, nil)
	}

	h.log(c).Warn("Lease request rejected",
		zap.Int("status", status),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(status, body)
}

func setRateLimitHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	c.Header(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	c.Header(HeaderRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
}
