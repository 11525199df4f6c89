package services

import (
	"strings"

	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

// resolveLang parses an explicit language or detects it from text.
func resolveLang(detector nlp.Detector, explicit, text, op string) (nlp.Lang, error) {
	if strings.TrimSpace(explicit) != "" {
		lang, err := nlp.ParseLang(explicit)
		if err != nil {
			return "", invalid("unsupported_language", op, err.Error())
		}
		return lang, nil
	}
	if detector == nil {
		return "", invalid("unsupported_language", op, "language is required")
	}
	lang, err := detector.Detect(text)
	if err != nil {
		return "", invalid("unsupported_language", op, "language detection failed: "+err.Error())
	}
	return lang, nil
}
