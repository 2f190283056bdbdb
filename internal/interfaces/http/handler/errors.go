package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/application/leasegen"
	"github.com/leasegen/backend/internal/infrastructure/logger"
	"github.com/leasegen/backend/internal/interfaces/http/dto"
)

// respondError is the only place pipeline failures become responses. It
// writes one log entry and one response.
func (h *LeaseHandler) respondError(c *gin.Context, err error) {
	var perr *leasegen.Error
	if !errors.As(err, &perr) {
		perr = &leasegen.Error{
			Kind:    leasegen.KindInfrastructure,
			Stage:   "unknown",
			Message: "unexpected failure",
			Cause:   errors.WithStack(err),
		}
	}

	if perr.Decision != nil {
		setRateLimitHeaders(c, *perr.Decision)
	}

	status, body := h.failure(perr)
	h.logFailure(c, perr, status)
	c.AbortWithStatusJSON(status, body)
}

func (h *LeaseHandler) failure(e *leasegen.Error) (int, dto.ErrorResponse) {
	switch e.Kind {
	case leasegen.KindQuota:
		details := dto.RateLimitDetails{}
		if e.Decision != nil {
			details.Remaining = e.Decision.Remaining
			details.ResetAt = e.Decision.ResetAt.UTC()
		}
		return http.StatusTooManyRequests, dto.NewErrorResponse(dto.ErrRateLimited, "", details)

	case leasegen.KindClient:
		if len(e.Fields) == 0 {
			return http.StatusBadRequest, dto.NewErrorResponse(e.Message, "", nil)
		}
		return http.StatusBadRequest, dto.NewFieldErrorResponse(e.Message, "", e.Fields)

	case leasegen.KindAuthorization:
		return http.StatusForbidden, dto.NewErrorResponse(dto.ErrCaptchaFailed, "", nil)

	case leasegen.KindGenerationIntegrity:
		return http.StatusUnprocessableEntity, dto.NewFieldErrorResponse(dto.ErrIncompleteLease, dto.MsgRetryGeneration, e.Fields)
	}

	if h.production {
		return http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrInternal, dto.MsgInternalRedacted, nil)
	}
	details := dto.DebugDetails{Stage: e.Stage, Stack: fmt.Sprintf("%+v", e.Cause)}
	if e.Cause != nil {
		details.Cause = e.Cause.Error()
	}
	return http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrInternal, e.Message, details)
}

func (h *LeaseHandler) logFailure(c *gin.Context, e *leasegen.Error, status int) {
	fields := []zap.Field{
		zap.String("stage", e.Stage),
		zap.String("kind", string(e.Kind)),
		zap.Int("status", status),
	}
	if len(e.Fields) > 0 {
		fields = append(fields, zap.Strings("fields", e.Paths()))
	}
	if e.Decision != nil {
		fields = append(fields, zap.Int("remaining", e.Decision.Remaining))
	}

	log := h.log(c)
	if e.Kind == leasegen.KindInfrastructure {
		log.Error("Lease generation failed", append(fields, zap.Error(e))...)
		return
	}
	log.Warn("Lease request refused", append(fields, zap.String("reason", e.Message))...)
}

func (h *LeaseHandler) log(c *gin.Context) *logger.ContextLogger {
	return logger.Bind(c.Request.Context(), h.logger)
}
