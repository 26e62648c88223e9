// Package i18n picks the display language for product names.
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// Default is used when nothing the client asks for is supported.
const Default = "en"

var supported = []language.Tag{
	language.English, // first entry is the matcher fallback
	language.French,
	language.Arabic,
}

var matcher = language.NewMatcher(supported)

// Supported lists the language codes the catalog carries translations for.
func Supported() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = base(t)
	}
	return out
}

// Match returns the best supported language for the given preferences,
// each either a bare code or an Accept-Language header value.
func Match(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return base(supported[idx])
}

// FromRequest resolves the language from the "lang" query parameter, falling
// back to the Accept-Language header.
func FromRequest(r *http.Request) string {
	return Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
}

func base(t language.Tag) string {
	b, _ := t.Base()
	return b.String()
}
