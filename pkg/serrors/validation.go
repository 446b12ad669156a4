package serrors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/go-i18n/v2/i18n"
)

type ValidationError interface {
	error
	Field() string
	Localize(l *i18n.Localizer) string
}

// ValidationErrors maps a struct field name to the first failure reported for it.
type ValidationErrors map[string]ValidationError

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, v[field].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldError struct {
	field    string
	fieldKey string
	tag      string
	param    string
}

func (e *fieldError) Field() string {
	return e.field
}

func (e *fieldError) Error() string {
	if e.param != "" {
		return fmt.Sprintf("%s failed on %s=%s", e.field, e.tag, e.param)
	}
	return fmt.Sprintf("%s failed on %s", e.field, e.tag)
}

func (e *fieldError) Localize(l *i18n.Localizer) string {
	if l == nil {
		return e.Error()
	}
	fieldName := e.field
	if e.fieldKey != "" {
		if v, err := l.Localize(&i18n.LocalizeConfig{MessageID: e.fieldKey}); err == nil && v != "" {
			fieldName = v
		}
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID: "Validations." + e.tag,
		TemplateData: map[string]string{
			"Field": fieldName,
			"Param": e.param,
		},
	})
	if err != nil || msg == "" {
		return e.Error()
	}
	return msg
}

func NewFieldRequiredError(field, fieldKey string) ValidationError {
	return &fieldError{field: field, fieldKey: fieldKey, tag: "required"}
}

func NewFieldMaxError(field, fieldKey string, limit int) ValidationError {
	return &fieldError{field: field, fieldKey: fieldKey, tag: "max", param: fmt.Sprint(limit)}
}

// ProcessValidatorErrors converts validator output into ValidationErrors keyed by
// the top-level struct field. Nested failures (e.g. Links[3].URLAddress) are
// reported under their full namespace without the struct prefix.
func ProcessValidatorErrors(errs validator.ValidationErrors, getFieldLocaleKey func(field string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, err := range errs {
		field := err.StructField()
		if ns := err.StructNamespace(); strings.Contains(ns, ".") {
			field = ns[strings.Index(ns, ".")+1:]
		}
		if _, exists := out[field]; exists {
			continue
		}
		out[field] = &fieldError{
			field:    field,
			fieldKey: getFieldLocaleKey(err.StructField()),
			tag:      err.Tag(),
			param:    err.Param(),
		}
	}
	return out
}

func LocalizeValidationErrors(errs ValidationErrors, l *i18n.Localizer) map[string]string {
	out := make(map[string]string, len(errs))
	for field, err := range errs {
		out[field] = err.Localize(l)
	}
	return out
}
