package middleware

import (
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/gin-gonic/gin"
)

const (
	localeKey    = "locale"
	localeCookie = "io_lang"
)

// I18n resolves the request locale and stores it in the gin context.
// Precedence: "lang" query, io_lang cookie, Accept-Language.
func I18n() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Accept-Language")
		if lang, err := c.Cookie(localeCookie); err == nil && lang != "" {
			header = lang
		}
		if lang := c.Query("lang"); lang != "" {
			header = lang
		}
		locale := i18n.ParseAcceptLanguage(header)
		c.Set(localeKey, locale)

		// 렌더링 결과가 언어별로 달라지므로 캐시 키에 포함시킴
		c.Header("Vary", "Accept-Language, Cookie")
		c.Header("Content-Language", string(locale))
		c.Next()
	}
}

// GetLocale returns the locale set by I18n, or the default locale
func GetLocale(c *gin.Context) i18n.Locale {
	if v, exists := c.Get(localeKey); exists {
		if locale, ok := v.(i18n.Locale); ok {
			return locale
		}
	}
	return i18n.DefaultLocale()
}
