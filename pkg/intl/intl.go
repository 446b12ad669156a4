package intl

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/iota-uz/projecthub/pkg/constants"
)

var ErrNoLocalizer = errors.New("localizer not found")

type SupportedLanguage struct {
	Code        string
	VerboseName string
	Tag         language.Tag
}

var SupportedLanguages = []SupportedLanguage{
	{
		Code:        "ko",
		VerboseName: "한국어",
		Tag:         language.Korean,
	},
	{
		Code:        "en",
		VerboseName: "English",
		Tag:         language.English,
	},
}

// LoadBundle returns a bundle with Korean as the fallback language and the
// json/toml decoders registered.
func LoadBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.Korean)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	return bundle
}

// RegisterLocaleFiles parses every file under dir in fsys into bundle.
// The file name (e.g. "ko.toml") selects the language and the decoder.
func RegisterLocaleFiles(bundle *i18n.Bundle, fsys fs.FS, dir string) error {
	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path.Base(p))
		return err
	})
}

// MatchLanguage picks the supported tag closest to code, defaulting to Korean.
func MatchLanguage(code string) language.Tag {
	tags := make([]language.Tag, len(SupportedLanguages))
	for i, l := range SupportedLanguages {
		tags[i] = l.Tag
	}
	candidate, err := language.Parse(code)
	if err != nil {
		return tags[0]
	}
	_, idx, _ := language.NewMatcher(tags).Match(candidate)
	return tags[idx]
}

func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, constants.LocalizerKey, l)
}

func UseLocalizer(ctx context.Context) (*i18n.Localizer, bool) {
	l, ok := ctx.Value(constants.LocalizerKey).(*i18n.Localizer)
	return l, ok && l != nil
}

func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, constants.LocaleKey, tag)
}

func UseLocale(ctx context.Context, defaultLocale language.Tag) language.Tag {
	tag, ok := ctx.Value(constants.LocaleKey).(language.Tag)
	if !ok {
		return defaultLocale
	}
	return tag
}
