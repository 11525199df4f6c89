package nlp

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed stopwords.yaml
var stopwordsYAML []byte

type Normalizer interface {
	Normalize(text string, lang Lang) ([]string, error)
}

type Stemmer interface {
	Stem(tokens []string, lang Lang) ([]string, error)
}

type stopwordNormalizer struct {
	stop map[Lang]map[string]struct{}
}

var (
	defaultStopOnce sync.Once
	defaultStop     map[Lang]map[string]struct{}
	defaultStopErr  error
)

// NewNormalizer builds a normalizer from the embedded stopword lists.
func NewNormalizer() (Normalizer, error) {
	defaultStopOnce.Do(func() {
		defaultStop, defaultStopErr = ParseStopwords(stopwordsYAML)
	})
	if defaultStopErr != nil {
		return nil, defaultStopErr
	}
	return &stopwordNormalizer{stop: defaultStop}, nil
}

// ParseStopwords reads a YAML document mapping language names to word lists.
func ParseStopwords(doc []byte) (map[Lang]map[string]struct{}, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("parse stopwords: %w", err)
	}
	out := make(map[Lang]map[string]struct{}, len(raw))
	for name, words := range raw {
		lang, err := ParseLang(name)
		if err != nil {
			return nil, fmt.Errorf("parse stopwords: %w", err)
		}
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
		}
		out[lang] = set
	}
	return out, nil
}

// Normalize lower-cases text, keeps only Latin/Cyrillic letters and whitespace,
// splits on whitespace and drops stopwords. Its output joined with single spaces
// is a fixed point: normalizing it again yields the same tokens.
func (n *stopwordNormalizer) Normalize(text string, lang Lang) ([]string, error) {
	stop, ok := n.stop[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case isAlphabet(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if _, skip := stop[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

func isAlphabet(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'а' && r <= 'я') || r == 'ё'
}
