package schema

import (
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/leasegen/backend/internal/domain/lease"
)

var missingProperty = regexp.MustCompile(`^property "(.+)" is missing$`)

// visit validates value against s and flattens every reported error into
// field errors rooted at prefix.
func visit(s *openapi3.Schema, value any, prefix []string) []lease.FieldError {
	err := s.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	return flatten(err, prefix)
}

func flatten(err error, prefix []string) []lease.FieldError {
	switch e := err.(type) {
	case openapi3.MultiError:
		var fields []lease.FieldError
		for _, inner := range e {
			fields = append(fields, flatten(inner, prefix)...)
		}
		return fields
	case *openapi3.SchemaError:
		segments := append(append([]string{}, prefix...), e.JSONPointer()...)
		if e.SchemaField == "required" {
			// name the missing property rather than its parent
			if m := missingProperty.FindStringSubmatch(e.Reason); m != nil {
				if len(segments) == 0 || segments[len(segments)-1] != m[1] {
					segments = append(segments, m[1])
				}
			}
		}
		return []lease.FieldError{{
			Path:    formatPath(segments),
			Reason:  classify(e.SchemaField),
			Message: e.Reason,
		}}
	default:
		return []lease.FieldError{{
			Path:    formatPath(prefix),
			Reason:  lease.ReasonInvalid,
			Message: err.Error(),
		}}
	}
}

func classify(schemaField string) lease.Reason {
	switch schemaField {
	case "required", "minLength", "minItems":
		return lease.ReasonMissing
	case "type", "nullable":
		return lease.ReasonWrongType
	case "enum":
		return lease.ReasonNotInEnum
	case "pattern":
		return lease.ReasonMalformedDate
	case "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum":
		return lease.ReasonOutOfRange
	default:
		return lease.ReasonInvalid
	}
}

// formatPath renders ["tenants", "1", "name"] as "tenants[1].name".
func formatPath(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		switch {
		case i > 0 && isIndex(seg):
			b.WriteString("[" + seg + "]")
		case b.Len() > 0:
			b.WriteString("." + seg)
		default:
			b.WriteString(seg)
		}
	}
	return b.String()
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
