package format

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

const defaultLayout = "1/2/2006, 3:04:05 PM"

// Date-time layouts mirroring the short locale rendering of common locales.
// The first entry is the fallback.
var localeLayouts = []struct {
	tag    language.Tag
	layout string
}{
	{language.AmericanEnglish, defaultLayout},
	{language.BritishEnglish, "02/01/2006, 15:04:05"},
	{language.Spanish, "2/1/2006, 15:04:05"},
	{language.German, "2.1.2006, 15:04:05"},
	{language.French, "02/01/2006 15:04:05"},
	{language.Portuguese, "02/01/2006, 15:04:05"},
	{language.Italian, "2/1/2006, 15:04:05"},
	{language.Japanese, "2006/1/2 15:04:05"},
}

var localeMatcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(localeLayouts))
	for _, l := range localeLayouts {
		tags = append(tags, l.tag)
	}
	return language.NewMatcher(tags)
}()

// HostLocale returns the locale from LC_ALL, LC_TIME or LANG, in that order.
func HostLocale() string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// LayoutForLocale picks the date-time layout for a BCP 47 tag or a POSIX
// locale name such as "es_ES.UTF-8". Unknown locales get the en-US layout.
func LayoutForLocale(locale string) string {
	tag, err := language.Parse(normalizeLocale(locale))
	if err != nil {
		return defaultLayout
	}
	_, idx, confidence := localeMatcher.Match(tag)
	if confidence == language.No {
		return defaultLayout
	}
	return localeLayouts[idx].layout
}

// normalizeLocale strips the codeset and modifier from POSIX names.
func normalizeLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}
