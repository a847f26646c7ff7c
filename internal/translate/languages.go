package translate

import "strings"

// AutoDetect asks the backend to work out the source language.
const AutoDetect = "auto"

type Language struct {
	Code   string
	Name   string
	Native string
	Flag   string
	Indian bool
}

// Languages lists every supported target language in display order.
var Languages = []Language{
	{Code: "hi", Name: "Hindi", Native: "हिन्दी", Flag: "🇮🇳", Indian: true},
	{Code: "ta", Name: "Tamil", Native: "தமிழ்", Flag: "🇮🇳", Indian: true},
	{Code: "te", Name: "Telugu", Native: "తెలుగు", Flag: "🇮🇳", Indian: true},
	{Code: "bn", Name: "Bengali", Native: "বাংলা", Flag: "🇮🇳", Indian: true},
	{Code: "mr", Name: "Marathi", Native: "मराठी", Flag: "🇮🇳", Indian: true},
	{Code: "gu", Name: "Gujarati", Native: "ગુજરાતી", Flag: "🇮🇳", Indian: true},
	{Code: "kn", Name: "Kannada", Native: "ಕನ್ನಡ", Flag: "🇮🇳", Indian: true},
	{Code: "ml", Name: "Malayalam", Native: "മലയാളം", Flag: "🇮🇳", Indian: true},
	{Code: "pa", Name: "Punjabi", Native: "ਪੰਜਾਬੀ", Flag: "🇮🇳", Indian: true},
	{Code: "ur", Name: "Urdu", Native: "اردو", Flag: "🇵🇰", Indian: true},
	{Code: "en", Name: "English", Native: "English", Flag: "🇬🇧"},
	{Code: "es", Name: "Spanish", Native: "Español", Flag: "🇪🇸"},
	{Code: "fr", Name: "French", Native: "Français", Flag: "🇫🇷"},
	{Code: "de", Name: "German", Native: "Deutsch", Flag: "🇩🇪"},
	{Code: "pt", Name: "Portuguese", Native: "Português", Flag: "🇵🇹"},
	{Code: "ru", Name: "Russian", Native: "Русский", Flag: "🇷🇺"},
	{Code: "ja", Name: "Japanese", Native: "日本語", Flag: "🇯🇵"},
	{Code: "ko", Name: "Korean", Native: "한국어", Flag: "🇰🇷"},
	{Code: "zh", Name: "Chinese", Native: "中文", Flag: "🇨🇳"},
	{Code: "ar", Name: "Arabic", Native: "العربية", Flag: "🇸🇦"},
	{Code: "it", Name: "Italian", Native: "Italiano", Flag: "🇮🇹"},
	{Code: "nl", Name: "Dutch", Native: "Nederlands", Flag: "🇳🇱"},
	{Code: "pl", Name: "Polish", Native: "Polski", Flag: "🇵🇱"},
	{Code: "tr", Name: "Turkish", Native: "Türkçe", Flag: "🇹🇷"},
	{Code: "vi", Name: "Vietnamese", Native: "Tiếng Việt", Flag: "🇻🇳"},
	{Code: "th", Name: "Thai", Native: "ไทย", Flag: "🇹🇭"},
	{Code: "id", Name: "Indonesian", Native: "Bahasa Indonesia", Flag: "🇮🇩"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(Languages))
	for _, l := range Languages {
		m[l.Code] = l
	}
	return m
}()

func IsSupported(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Info returns the language for code. Unknown codes get a generic entry
// named after the upper-cased code.
func Info(code string) Language {
	if l, ok := byCode[code]; ok {
		return l
	}
	return Language{Code: code, Name: strings.ToUpper(code), Native: code, Flag: "🌐"}
}

// normalizeCode maps backend codes such as "zh-CN" onto the table's codes.
func normalizeCode(code string) string {
	code = strings.ToLower(code)
	if base, _, ok := strings.Cut(code, "-"); ok && IsSupported(base) {
		return base
	}
	return code
}
