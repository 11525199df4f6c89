package nlp

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

type Lang string

const (
	English Lang = "english"
	Russian Lang = "russian"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

func (l Lang) Supported() bool {
	return l == English || l == Russian
}

// ParseLang accepts full names and ISO codes ("en", "eng", "ru", "rus").
func ParseLang(raw string) (Lang, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "english", "en", "eng":
		return English, nil
	case "russian", "ru", "rus":
		return Russian, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, raw)
	}
}

type Detector interface {
	Detect(text string) (Lang, error)
}

type whatlangDetector struct {
	opts whatlanggo.Options
}

// NewDetector returns a detector restricted to the supported languages.
func NewDetector() Detector {
	return &whatlangDetector{opts: whatlanggo.Options{
		Whitelist: map[whatlanggo.Lang]bool{
			whatlanggo.Eng: true,
			whatlanggo.Rus: true,
		},
	}}
}

func (d *whatlangDetector) Detect(text string) (Lang, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", ErrUnsupportedLanguage)
	}
	if lang, ok := scriptHint(text); ok {
		return lang, nil
	}
	info := whatlanggo.DetectWithOptions(text, d.opts)
	switch info.Lang {
	case whatlanggo.Eng:
		return English, nil
	case whatlanggo.Rus:
		return Russian, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, info.Lang.String())
	}
}

// scriptHint short-circuits inputs written purely in one alphabet. Trigram
// detection is unreliable on the one or two words a term usually has.
func scriptHint(text string) (Lang, bool) {
	var latin, cyr int
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		case (r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё':
			cyr++
		}
	}
	switch {
	case latin > 0 && cyr == 0:
		return English, true
	case cyr > 0 && latin == 0:
		return Russian, true
	default:
		return "", false
	}
}
