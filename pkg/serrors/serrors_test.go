package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestBaseError_IsMatchesByCode(t *testing.T) {
	sentinel := NewError("REQUESTS_STALE", "stale", "Requests.Errors.Stale")
	withData := sentinel.WithTemplateData(map[string]string{"id": "7"})

	wrapped := fmt.Errorf("approve: %w", withData)
	require.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, "7", withData.TemplateData["id"])
	assert.Nil(t, sentinel.TemplateData, "sentinel must not be mutated")

	var be *BaseError
	require.True(t, errors.As(wrapped, &be))
	assert.Equal(t, "REQUESTS_STALE", be.Code)
}

func TestBaseError_LocalizeFallsBackToMessage(t *testing.T) {
	err := NewError("X", "plain message", "Missing.Key")
	assert.Equal(t, "plain message", err.Localize(nil))

	bundle := i18n.NewBundle(language.English)
	l := i18n.NewLocalizer(bundle, "en")
	assert.Equal(t, "plain message", err.Localize(l))
}

func TestProcessValidatorErrors(t *testing.T) {
	type link struct {
		URLAddress string `validate:"required,url"`
	}
	type dto struct {
		Title string `validate:"required"`
		Links []link `validate:"max=2,dive"`
	}

	v := validator.New()
	err := v.Struct(&dto{Links: []link{{URLAddress: "nope"}}})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	out := ProcessValidatorErrors(verrs, func(field string) string {
		return "Fields." + field
	})

	require.Contains(t, out, "Title")
	require.Contains(t, out, "Links[0].URLAddress")
	assert.Equal(t, "Title failed on required", out["Title"].Error())

	bundle := i18n.NewBundle(language.English)
	require.NoError(t, bundle.AddMessages(language.English,
		&i18n.Message{ID: "Validations.required", Other: "{{.Field}} is required"},
		&i18n.Message{ID: "Fields.Title", Other: "Title"},
	))
	localized := LocalizeValidationErrors(out, i18n.NewLocalizer(bundle, "en"))
	assert.Equal(t, "Title is required", localized["Title"])
	assert.Contains(t, out.Error(), "validation failed")
}
