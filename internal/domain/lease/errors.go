package lease

import (
	"fmt"
	"sort"
	"strings"
)

// Reason classifies why a field failed validation.
type Reason string

const (
	ReasonMissing       Reason = "missing"
	ReasonWrongType     Reason = "wrong_type"
	ReasonNotInEnum     Reason = "not_in_enum"
	ReasonMalformedDate Reason = "malformed_date"
	ReasonOutOfRange    Reason = "out_of_range"
	ReasonInvalid       Reason = "invalid"
)

// FieldError reports one offending field. Path is dotted with list
// indices, e.g. "financials.monthlyRent" or "tenants[1].name"; the empty
// path denotes the record itself.
type FieldError struct {
	Path    string `json:"path"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// ValidationError enumerates every offending field of a record.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Path == "" {
			parts = append(parts, string(f.Reason))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Paths returns the offending field paths in order.
func (e *ValidationError) Paths() []string {
	paths := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		paths[i] = f.Path
	}
	return paths
}

// NewValidationError sorts fields by path and reason and drops repeats of the same
// path and reason. It returns nil when no fields remain.
func NewValidationError(fields []FieldError) *ValidationError {
	if len(fields) == 0 {
		return nil
	}
	sorted := make([]FieldError, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Reason < sorted[j].Reason
	})

	out := make([]FieldError, 0, len(sorted))
	for _, f := range sorted {
		if n := len(out); n > 0 && out[n-1].Path == f.Path && out[n-1].Reason == f.Reason {
			continue
		}
		out = append(out, f)
	}
	return &ValidationError{Fields: out}
}
