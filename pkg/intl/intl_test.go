package intl

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestRegisterLocaleFiles_TomlAndJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/ko.toml": {Data: []byte("\"Greeting\" = \"안녕하세요\"\n")},
		"locales/en.json": {Data: []byte(`{"Greeting": "Hello"}`)},
	}
	bundle := LoadBundle()
	require.NoError(t, RegisterLocaleFiles(bundle, fsys, "locales"))

	ko := i18n.NewLocalizer(bundle, "ko")
	en := i18n.NewLocalizer(bundle, "en")
	assert.Equal(t, "안녕하세요", ko.MustLocalize(&i18n.LocalizeConfig{MessageID: "Greeting"}))
	assert.Equal(t, "Hello", en.MustLocalize(&i18n.LocalizeConfig{MessageID: "Greeting"}))
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.English, MatchLanguage("en"))
	assert.Equal(t, language.Korean, MatchLanguage("ko"))
	assert.Equal(t, language.Korean, MatchLanguage("!!"))
}

func TestLocalizerContext(t *testing.T) {
	_, ok := UseLocalizer(context.Background())
	assert.False(t, ok)

	l := i18n.NewLocalizer(LoadBundle(), "ko")
	ctx := WithLocalizer(context.Background(), l)
	got, ok := UseLocalizer(ctx)
	require.True(t, ok)
	assert.Same(t, l, got)

	assert.Equal(t, language.Korean, UseLocale(context.Background(), language.Korean))
	assert.Equal(t, language.English, UseLocale(WithLocale(ctx, language.English), language.Korean))
}
