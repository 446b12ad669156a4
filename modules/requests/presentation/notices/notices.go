package notices

import (
	"errors"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

type Severity string

const (
	// SeverityInline marks field errors shown next to the form.
	SeverityInline Severity = "inline"
	// SeverityBlocking marks errors the user must acknowledge; no retry is offered.
	SeverityBlocking Severity = "blocking"
	// SeverityDismissible marks transient failures the user may retry.
	SeverityDismissible Severity = "dismissible"
	// SeverityWarning marks a saved entity whose files are still pending.
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

const ValidationCode = "REQUESTS_VALIDATION"

// Notice is the user-facing rendering of an operation outcome.
type Notice struct {
	Severity Severity          `json:"severity" yaml:"severity"`
	Code     string            `json:"code,omitempty" yaml:"code,omitempty"`
	Message  string            `json:"message" yaml:"message"`
	Fields   map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Refetch is set when the view has to reload authoritative state.
	Refetch bool `json:"refetch,omitempty" yaml:"refetch,omitempty"`
	// Retry holds the upload a "retry file upload" action should re-send.
	Retry *services.PendingUpload `json:"-" yaml:"-"`
}

func localize(l *i18n.Localizer, id, fallback string) string {
	if l == nil {
		return fallback
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}

// Success renders a confirmation message.
func Success(l *i18n.Localizer, messageID, fallback string) Notice {
	return Notice{Severity: SeveritySuccess, Message: localize(l, messageID, fallback)}
}

// FromError maps err onto a localized notice. Raw backend detail never
// reaches Message; use Log for diagnostics.
func FromError(l *i18n.Localizer, err error) Notice {
	var verrs serrors.ValidationErrors
	if errors.As(err, &verrs) {
		return Notice{
			Severity: SeverityInline,
			Code:     ValidationCode,
			Message:  localize(l, "Requests.Errors.Validation", "validation failed"),
			Fields:   serrors.LocalizeValidationErrors(verrs, l),
		}
	}

	var partial *services.PartialFailureError
	if errors.As(err, &partial) {
		pending := partial.Upload
		return Notice{
			Severity: SeverityWarning,
			Code:     services.ErrPartialUpload.Code,
			Message:  services.ErrPartialUpload.Localize(l),
			Retry:    &pending,
		}
	}

	var be *serrors.BaseError
	if !errors.As(err, &be) {
		return Notice{
			Severity: SeverityDismissible,
			Message:  localize(l, "Requests.Errors.Unknown", "something went wrong"),
		}
	}
	n := Notice{
		Severity: SeverityDismissible,
		Code:     be.Code,
		Message:  be.Localize(l),
	}
	switch {
	case errors.Is(err, services.ErrForbidden):
		n.Severity = SeverityBlocking
	case errors.Is(err, services.ErrStale):
		n.Refetch = true
	}
	return n
}

// Log writes the diagnostic detail of err that FromError hides.
func Log(log *logrus.Entry, operation string, err error) {
	if err == nil {
		return
	}
	fields := logrus.Fields{"operation": operation}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		fields["http_status"] = apiErr.StatusCode
		fields["backend_code"] = apiErr.Code
		fields["backend_message"] = apiErr.Message
		fields["request-id"] = apiErr.RequestID
		fields["path"] = apiErr.Path
	}
	var be *serrors.BaseError
	if errors.As(err, &be) {
		fields["code"] = be.Code
	}
	log.WithFields(fields).WithError(err).Warn("operation failed")
}
