// Package schema validates lease records arriving from the two untrusted
// sources of the pipeline: the caller (input) and the generation backend
// (output).
//
// Validation runs in two phases. The structural phase checks the raw JSON
// against the embedded OpenAPI document and reports every missing,
// mistyped, out-of-enum, out-of-range or malformed field. Only a
// structurally clean document is decoded; the semantic phase then checks
// what the JSON schema cannot express (calendar dates, emails, date order).
package schema

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/leasegen/backend/internal/domain/lease"
)

//go:embed lease.openapi.yaml
var documentYAML []byte

const (
	inputSchemaName  = "LeaseInput"
	outputSchemaName = "LeaseOutput"
	tenantSchemaName = "Tenant"
)

// InputValidator validates caller-supplied lease input.
type InputValidator struct {
	root     *openapi3.Schema
	tenant   *openapi3.Schema
	semantic *semanticValidator
}

// OutputValidator validates generator-produced lease output. It shares no
// state with InputValidator and re-checks every field.
type OutputValidator struct {
	root     *openapi3.Schema
	semantic *semanticValidator
}

func NewInputValidator() (*InputValidator, error) {
	doc, err := loadDocument()
	if err != nil {
		return nil, err
	}
	root, err := lookup(doc, inputSchemaName)
	if err != nil {
		return nil, err
	}
	tenant, err := lookup(doc, tenantSchemaName)
	if err != nil {
		return nil, err
	}
	return &InputValidator{root: root, tenant: tenant, semantic: newSemanticValidator()}, nil
}

func NewOutputValidator() (*OutputValidator, error) {
	doc, err := loadDocument()
	if err != nil {
		return nil, err
	}
	root, err := lookup(doc, outputSchemaName)
	if err != nil {
		return nil, err
	}
	return &OutputValidator{root: root, semantic: newSemanticValidator()}, nil
}

// ValidateInput returns the decoded input, or a *lease.ValidationError
// listing every offending field.
func (v *InputValidator) ValidateInput(raw []byte) (*lease.Input, error) {
	doc, fields := parse(raw)
	if fields == nil {
		fields = visit(v.root, doc, nil)
		if obj, ok := doc.(map[string]any); ok {
			if tenants, present := obj["tenants"]; present {
				fields = append(fields, v.visitTenants(tenants)...)
			}
		}
	}
	if verr := lease.NewValidationError(fields); verr != nil {
		return nil, verr
	}

	var in lease.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, decodeFailure(err)
	}
	if verr := v.semantic.check(&in); verr != nil {
		if obj, ok := doc.(map[string]any); ok {
			if _, single := obj["tenants"].(map[string]any); single {
				verr = unindexTenant(verr)
			}
		}
		return nil, verr
	}
	return &in, nil
}

// unindexTenant rewrites "tenants[0].x" to "tenants.x" so a tenant sent as a
// single object is reported the same way by both validation phases.
func unindexTenant(verr *lease.ValidationError) *lease.ValidationError {
	fields := make([]lease.FieldError, len(verr.Fields))
	for i, f := range verr.Fields {
		if rest, ok := strings.CutPrefix(f.Path, "tenants[0]"); ok {
			f.Path = "tenants" + rest
		}
		fields[i] = f
	}
	return lease.NewValidationError(fields)
}

// visitTenants accepts a single tenant object or a non-empty array of them.
func (v *InputValidator) visitTenants(value any) []lease.FieldError {
	switch t := value.(type) {
	case map[string]any:
		return visit(v.tenant, t, []string{"tenants"})
	case []any:
		if len(t) == 0 {
			return []lease.FieldError{{
				Path:    "tenants",
				Reason:  lease.ReasonMissing,
				Message: "at least one tenant is required",
			}}
		}
		var fields []lease.FieldError
		for i, elem := range t {
			fields = append(fields, visit(v.tenant, elem, []string{"tenants", fmt.Sprint(i)})...)
		}
		return fields
	default:
		return []lease.FieldError{{
			Path:    "tenants",
			Reason:  lease.ReasonWrongType,
			Message: "must be a tenant object or a non-empty array of tenants",
		}}
	}
}

// ValidateOutput returns the decoded output, or a *lease.ValidationError
// listing every offending field.
func (v *OutputValidator) ValidateOutput(raw []byte) (*lease.Output, error) {
	doc, fields := parse(raw)
	if fields == nil {
		fields = visit(v.root, doc, nil)
	}
	if verr := lease.NewValidationError(fields); verr != nil {
		return nil, verr
	}

	var out lease.Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, decodeFailure(err)
	}
	if verr := v.semantic.check(&out); verr != nil {
		return nil, verr
	}
	return &out, nil
}

func loadDocument() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(documentYAML)
	if err != nil {
		return nil, fmt.Errorf("load lease schema: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid lease schema: %w", err)
	}
	return doc, nil
}

func lookup(doc *openapi3.T, name string) (*openapi3.Schema, error) {
	if doc.Components == nil {
		return nil, fmt.Errorf("lease schema has no components")
	}
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("lease schema %q not found", name)
	}
	return ref.Value, nil
}

func parse(raw []byte) (any, []lease.FieldError) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []lease.FieldError{{
			Path:    "",
			Reason:  lease.ReasonInvalid,
			Message: "body is not valid JSON",
		}}
	}
	return doc, nil
}

func decodeFailure(err error) *lease.ValidationError {
	return &lease.ValidationError{Fields: []lease.FieldError{{
		Path:    "",
		Reason:  lease.ReasonInvalid,
		Message: err.Error(),
	}}}
}
