package leasegen

import (
	"errors"
	"fmt"

	"github.com/leasegen/backend/internal/domain/lease"
	"github.com/leasegen/backend/internal/infrastructure/ratelimit"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindQuota: the caller exhausted its rate-limit window.
	KindQuota Kind = "quota"
	// KindClient: the request is incomplete or malformed.
	KindClient Kind = "client"
	// KindAuthorization: the challenge service rejected the token.
	KindAuthorization Kind = "authorization"
	// KindGenerationIntegrity: the backend produced a lease that fails the
	// output schema. Resubmitting may succeed.
	KindGenerationIntegrity Kind = "generation_integrity"
	// KindInfrastructure: a dependency failed.
	KindInfrastructure Kind = "infrastructure"
)

// Error is the single failure type returned by Pipeline.Generate.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	// Decision is set once the rate limit has been evaluated.
	Decision *ratelimit.Decision
	// Fields lists offending paths for client and integrity failures.
	Fields []lease.FieldError
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Paths returns the offending field paths.
func (e *Error) Paths() []string {
	paths := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		paths = append(paths, f.Path)
	}
	return paths
}

// Outcome is the metric label of a finished request.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return string(KindInfrastructure)
}
