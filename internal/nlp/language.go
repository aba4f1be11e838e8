package nlp

import "strings"

// languageCodes maps detected transcription language codes onto the
// 2-letter codes the detection service accepts.
var languageCodes = map[string]string{
	"ar-SA": "ar", "zh-CN": "zh", "zh-TW": "zh-TW",
	"en-AU": "en", "en-GB": "en", "en-IN": "en", "en-US": "en",
	"fr-CA": "fr", "fr-FR": "fr",
	"de-CH": "de", "de-DE": "de",
	"hi-IN": "hi",
	"it-IT": "it",
	"ja-JP": "ja",
	"ko-KR": "ko",
	"pt-BR": "pt", "pt-PT": "pt",
	"es-ES": "es", "es-US": "es",
}

// SupportedLanguage resolves a detected language code to the service's
// 2-letter form. The boolean is false for unmapped languages; callers
// resolve those stages as NO_DATA rather than failing the run.
func SupportedLanguage(detected string) (string, bool) {
	if detected == "" {
		return "", false
	}
	if mapped, ok := languageCodes[detected]; ok {
		return mapped, true
	}
	// already a bare 2-letter code
	if len(detected) == 2 && !strings.Contains(detected, "-") {
		return detected, true
	}
	return "", false
}
