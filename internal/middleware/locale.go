package middleware

import (
	"github.com/communehq/commune/internal/i18n"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// explicitLocaleKey marks requests whose language was chosen by the client
// for this request, which then wins over the account preference.
const explicitLocaleKey = "locale_explicit"

// Locale picks the response language from ?lang= or Accept-Language and
// installs the translator for error rendering.
func Locale(tr i18n.Translator) gin.HandlerFunc {
	if tr == nil {
		tr = i18n.Nop{}
	}
	return func(c *gin.Context) {
		c.Set(util.TranslatorKey, tr)

		lang := c.Query("lang")
		accept := c.GetHeader("Accept-Language")
		switch {
		case lang != "":
			c.Set(util.LocaleKey, tr.Match(lang))
			c.Set(explicitLocaleKey, true)
		case accept != "":
			c.Set(util.LocaleKey, tr.Match(accept))
			c.Set(explicitLocaleKey, true)
		default:
			c.Set(util.LocaleKey, tr.Match())
		}
		c.Next()
	}
}

// applyUserLocale switches to the account's language unless the request
// asked for one explicitly.
func applyUserLocale(c *gin.Context, locale string) {
	if locale == "" || c.GetBool(explicitLocaleKey) {
		return
	}
	v, ok := c.Get(util.TranslatorKey)
	if !ok {
		return
	}
	if tr, ok := v.(i18n.Translator); ok {
		c.Set(util.LocaleKey, tr.Match(locale))
	}
}
