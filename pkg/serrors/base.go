package serrors

import (
	"maps"

	"github.com/iota-uz/go-i18n/v2/i18n"
)

// BaseError is an error with a stable machine code and a locale key used to
// render it for end users.
type BaseError struct {
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so sentinel values can be
// matched after WithTemplateData copies them.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithTemplateData returns a copy of e with the given template data merged in.
func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	cp := *e
	cp.TemplateData = make(map[string]string, len(e.TemplateData)+len(data))
	maps.Copy(cp.TemplateData, e.TemplateData)
	maps.Copy(cp.TemplateData, data)
	return &cp
}

// Localize renders the error through l, falling back to Message when the
// locale key is missing or unknown.
func (e *BaseError) Localize(l *i18n.Localizer) string {
	if l == nil || e.LocaleKey == "" {
		return e.Message
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    e.LocaleKey,
		TemplateData: e.TemplateData,
	})
	if err != nil || msg == "" {
		return e.Message
	}
	return msg
}
