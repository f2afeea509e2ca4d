package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type languageContextKey struct{}

var languageKey = languageContextKey{}

// Language resolves the caller's preferred narration language from the
// X-Locale and Accept-Language headers against the supported set. Requests
// without a usable preference leave the context untouched.
func Language(supported []string) func(http.Handler) http.Handler {
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = append(tags, language.English)
	}
	matcher := language.NewMatcher(tags)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if lang := detectLanguage(r, matcher, tags); lang != "" {
				r = r.WithContext(context.WithValue(r.Context(), languageKey, lang))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func detectLanguage(r *http.Request, matcher language.Matcher, supported []language.Tag) string {
	var prefs []language.Tag
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if len(prefs) == 0 {
		if v := r.Header.Get("Accept-Language"); v != "" {
			tags, _, err := language.ParseAcceptLanguage(v)
			if err == nil {
				prefs = tags
			}
		}
	}
	if len(prefs) == 0 {
		return ""
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(supported) {
		return ""
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// LanguageFromContext returns the resolved language or "" when none was found.
func LanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(languageKey).(string); ok {
		return v
	}
	return ""
}
