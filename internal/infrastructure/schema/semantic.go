package schema

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leasegen/backend/internal/domain/lease"
)

const dateLayout = "2006-01-02"

type semanticValidator struct {
	validate *validator.Validate
}

func newSemanticValidator() *semanticValidator {
	v := validator.New()
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})
	v.RegisterStructValidation(validateLeaseTerm, lease.LeaseTerm{})
	return &semanticValidator{validate: v}
}

func validateLeaseTerm(sl validator.StructLevel) {
	term := sl.Current().Interface().(lease.LeaseTerm)
	if term.EndDate == "" {
		return
	}
	start, err := time.Parse(dateLayout, term.StartDate)
	if err != nil {
		return
	}
	end, err := time.Parse(dateLayout, term.EndDate)
	if err != nil {
		return
	}
	if end.Before(start) {
		sl.ReportError(term.EndDate, "endDate", "EndDate", "afterstart", "startDate")
	}
}

func (s *semanticValidator) check(record any) *lease.ValidationError {
	err := s.validate.Struct(record)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return decodeFailure(err)
	}

	fields := make([]lease.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		reason, msg := describe(fe)
		fields = append(fields, lease.FieldError{
			Path:    namespacePath(fe.Namespace()),
			Reason:  reason,
			Message: msg,
		})
	}
	return lease.NewValidationError(fields)
}

// namespacePath turns "Input.Terms.leaseTerm.endDate" into "leaseTerm.endDate".
func namespacePath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	kept := parts[:0]
	for _, p := range parts {
		if p == "Terms" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func describe(fe validator.FieldError) (lease.Reason, string) {
	switch fe.Tag() {
	case "isodate":
		return lease.ReasonMalformedDate, "Must be a calendar date in YYYY-MM-DD format"
	case "email":
		return lease.ReasonInvalid, "Invalid email format"
	case "afterstart":
		return lease.ReasonOutOfRange, "Must not be before " + fe.Param()
	default:
		return lease.ReasonInvalid, "Invalid value"
	}
}
