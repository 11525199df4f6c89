package nlp

import (
	"fmt"

	"github.com/kljensen/snowball"
)

type snowballStemmer struct{}

func NewStemmer() Stemmer { return snowballStemmer{} }

func (snowballStemmer) Stem(tokens []string, lang Lang) ([]string, error) {
	if !lang.Supported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		s, err := snowball.Stem(tok, string(lang), true)
		if err != nil {
			return nil, fmt.Errorf("stem %q: %w", tok, err)
		}
		out = append(out, s)
	}
	return out, nil
}
