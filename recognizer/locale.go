package recognizer

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a language plus optional country, rendered as "en_US".
type Locale struct {
	Language string `json:"lang" mapstructure:"lang"`
	Country  string `json:"country,omitempty" mapstructure:"country"`
}

// DefaultLocale is used when neither configuration nor caller names a locale.
var DefaultLocale = Locale{Language: "en", Country: "US"}

// NewLocale validates and canonicalizes a language/country pair.
func NewLocale(lang, country string) (Locale, error) {
	base, err := language.ParseBase(strings.TrimSpace(lang))
	if err != nil {
		return Locale{}, fmt.Errorf("invalid language %q: %w", lang, err)
	}
	loc := Locale{Language: base.String()}
	if country = strings.TrimSpace(country); country != "" {
		region, err := language.ParseRegion(country)
		if err != nil {
			return Locale{}, fmt.Errorf("invalid country %q: %w", country, err)
		}
		loc.Country = region.String()
	}
	return loc, nil
}

// ParseLocale parses "en_US", "en-US" or "en".
func ParseLocale(s string) (Locale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locale{}, fmt.Errorf("empty locale")
	}
	lang, country, _ := strings.Cut(strings.ReplaceAll(s, "-", "_"), "_")
	return NewLocale(lang, country)
}

// MustParseLocale is ParseLocale for literals; it panics on error.
func MustParseLocale(s string) Locale {
	loc, err := ParseLocale(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// String renders the locale in the underscore form hosts expect.
func (l Locale) String() string {
	if l.Country == "" {
		return l.Language
	}
	return l.Language + "_" + l.Country
}

// BCP47 renders the locale as a BCP 47 tag ("en-US") for backends that need it.
func (l Locale) BCP47() string {
	tag, err := language.Parse(strings.ReplaceAll(l.String(), "_", "-"))
	if err != nil {
		return strings.ReplaceAll(l.String(), "_", "-")
	}
	return tag.String()
}

// IsZero reports whether the locale is unset.
func (l Locale) IsZero() bool { return l.Language == "" }

// MarshalText implements encoding.TextMarshaler.
func (l Locale) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locale) UnmarshalText(b []byte) error {
	loc, err := ParseLocale(string(b))
	if err != nil {
		return err
	}
	*l = loc
	return nil
}
