package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// 支持的语言
const (
	LocaleZhTW = "zh-TW"
	LocaleEnUS = "en-US"

	DefaultLocale = LocaleZhTW
)

// 顺序决定匹配失败时的默认语言
var supportedTags = []language.Tag{
	language.MustParse(LocaleZhTW),
	language.MustParse(LocaleEnUS),
}

var matcher = language.NewMatcher(supportedTags)

// ResolveLocale 解析请求语言：?lang= 优先，其次 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if cached, ok := c.Get("locale"); ok {
		if locale, ok := cached.(string); ok && locale != "" {
			return locale
		}
	}
	candidates := make([]string, 0, 2)
	if c.Request != nil {
		if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
			candidates = append(candidates, lang)
		}
		if header := strings.TrimSpace(c.GetHeader("Accept-Language")); header != "" {
			candidates = append(candidates, header)
		}
	}
	locale := MatchLocale(candidates...)
	c.Set("locale", locale)
	return locale
}

// MatchLocale 在支持的语言中匹配最合适的一个
func MatchLocale(candidates ...string) string {
	for _, candidate := range candidates {
		tags, _, err := language.ParseAcceptLanguage(candidate)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, index, confidence := matcher.Match(tags...)
		if confidence == language.No {
			continue
		}
		return supportedTags[index].String()
	}
	return DefaultLocale
}

// T 获取翻译文本，找不到时回退默认语言，再回退 key 本身
func T(locale, key string) string {
	if msgs, ok := catalog[normalizeLocale(locale)]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 获取带格式参数的翻译文本
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func normalizeLocale(locale string) string {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en", "en-us":
		return LocaleEnUS
	case "zh-tw", "zh-hant", "zh-hant-tw":
		return LocaleZhTW
	default:
		return locale
	}
}
