// Package textidentity turns free text into the raw/cleaned/stemmed triple and
// gates writes on per-tier global uniqueness.
package textidentity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

type Kind string

const (
	KindTerm        Kind = "term"
	KindDescription Kind = "description"
)

// Identity is the canonical text triple of a term or description.
type Identity struct {
	Raw        string
	Cleaned    string
	Stemmed    string
	StemTokens []string
}

// FirstLetter is the leading rune of the first stemmed token.
func (id Identity) FirstLetter() string {
	for _, r := range id.Stemmed {
		return string(r)
	}
	return ""
}

// Change records which tiers an update actually modified. Next always holds the
// full resulting triple.
type Change struct {
	Raw     bool
	Cleaned bool
	Stemmed bool
	Next    Identity
}

func (c Change) Any() bool { return c.Raw || c.Cleaned || c.Stemmed }

// Updates returns the column updates for the changed tiers.
func (c Change) Updates() map[string]interface{} {
	out := map[string]interface{}{}
	if c.Raw {
		out[string(glossary.TierRaw)] = c.Next.Raw
	}
	if c.Cleaned {
		out[string(glossary.TierCleaned)] = c.Next.Cleaned
	}
	if c.Stemmed {
		out[string(glossary.TierStemmed)] = c.Next.Stemmed
	}
	return out
}

// Lookup answers exact-match existence queries on one tier of one entity kind.
type Lookup interface {
	ExistsByTier(dbc dbctx.Context, tier glossary.Tier, value string, excludeID uuid.UUID) (bool, error)
}

type Service struct {
	norm nlp.Normalizer
	stem nlp.Stemmer
}

func New(norm nlp.Normalizer, stem nlp.Stemmer) *Service {
	return &Service{norm: norm, stem: stem}
}

// Canonicalize derives cleaned and stemmed forms from raw text.
func (s *Service) Canonicalize(raw string, lang nlp.Lang) (Identity, error) {
	tokens, err := s.norm.Normalize(raw, lang)
	if err != nil {
		return Identity{}, validation("canonicalize", err)
	}
	id, err := s.fromCleanedTokens(tokens, lang)
	if err != nil {
		return Identity{}, err
	}
	id.Raw = raw
	return id, nil
}

func (s *Service) fromCleanedTokens(tokens []string, lang nlp.Lang) (Identity, error) {
	if len(tokens) == 0 {
		return Identity{}, glossary.NewError(glossary.CodeValidation, "empty_normalized_text", "canonicalize",
			"text has no content words left after normalization")
	}
	stems, err := s.stem.Stem(tokens, lang)
	if err != nil {
		return Identity{}, validation("stem", err)
	}
	return Identity{
		Cleaned:    strings.Join(tokens, " "),
		Stemmed:    strings.Join(stems, " "),
		StemTokens: stems,
	}, nil
}

// ApplyRaw recomputes tiers for a new raw text. Cleaned is replaced only if the
// recomputed value differs, and stemmed only if cleaned changed and the
// recomputed stem differs.
func (s *Service) ApplyRaw(current Identity, newRaw string, lang nlp.Lang) (Change, error) {
	ch := Change{Next: current}
	if newRaw == current.Raw {
		return ch, nil
	}
	ch.Raw = true
	ch.Next.Raw = newRaw

	tokens, err := s.norm.Normalize(newRaw, lang)
	if err != nil {
		return Change{}, validation("apply raw", err)
	}
	cleaned := strings.Join(tokens, " ")
	if cleaned == current.Cleaned {
		return ch, nil
	}
	derived, err := s.fromCleanedTokens(tokens, lang)
	if err != nil {
		return Change{}, err
	}
	ch.Cleaned = true
	ch.Next.Cleaned = derived.Cleaned
	if derived.Stemmed != current.Stemmed {
		ch.Stemmed = true
		ch.Next.Stemmed = derived.Stemmed
		ch.Next.StemTokens = derived.StemTokens
	}
	return ch, nil
}

// ApplyCleaned handles a direct edit of the cleaned tier. Raw is untouched; the
// stemmed tier follows only when the recomputed stem differs.
func (s *Service) ApplyCleaned(current Identity, newCleaned string, lang nlp.Lang) (Change, error) {
	tokens := strings.Fields(newCleaned)
	cleaned := strings.Join(tokens, " ")
	ch := Change{Next: current}
	if cleaned == current.Cleaned {
		return ch, nil
	}
	derived, err := s.fromCleanedTokens(tokens, lang)
	if err != nil {
		return Change{}, err
	}
	ch.Cleaned = true
	ch.Next.Cleaned = derived.Cleaned
	if derived.Stemmed != current.Stemmed {
		ch.Stemmed = true
		ch.Next.Stemmed = derived.Stemmed
		ch.Next.StemTokens = derived.StemTokens
	}
	return ch, nil
}

// ApplyStemmed handles a direct edit of the stemmed tier.
func (s *Service) ApplyStemmed(current Identity, newStemmed string) (Change, error) {
	tokens := strings.Fields(newStemmed)
	if len(tokens) == 0 {
		return Change{}, glossary.NewError(glossary.CodeValidation, "empty_normalized_text", "apply stemmed",
			"stemmed text is empty")
	}
	stemmed := strings.Join(tokens, " ")
	ch := Change{Next: current}
	if stemmed == current.Stemmed {
		return ch, nil
	}
	ch.Stemmed = true
	ch.Next.Stemmed = stemmed
	ch.Next.StemTokens = tokens
	return ch, nil
}

// CheckCreate rejects a new row whose cleaned, then stemmed, text already exists.
func (s *Service) CheckCreate(dbc dbctx.Context, lookup Lookup, kind Kind, id Identity) error {
	if err := checkTier(dbc, lookup, kind, glossary.TierCleaned, id.Cleaned, uuid.Nil); err != nil {
		return err
	}
	return checkTier(dbc, lookup, kind, glossary.TierStemmed, id.Stemmed, uuid.Nil)
}

// CheckChange verifies every tier the change touches against rows other than self.
func (s *Service) CheckChange(dbc dbctx.Context, lookup Lookup, kind Kind, ch Change, self uuid.UUID) error {
	if ch.Raw {
		if err := checkTier(dbc, lookup, kind, glossary.TierRaw, ch.Next.Raw, self); err != nil {
			return err
		}
	}
	if ch.Cleaned {
		if err := checkTier(dbc, lookup, kind, glossary.TierCleaned, ch.Next.Cleaned, self); err != nil {
			return err
		}
	}
	if ch.Stemmed {
		if err := checkTier(dbc, lookup, kind, glossary.TierStemmed, ch.Next.Stemmed, self); err != nil {
			return err
		}
	}
	return nil
}

func checkTier(dbc dbctx.Context, lookup Lookup, kind Kind, tier glossary.Tier, value string, self uuid.UUID) error {
	exists, err := lookup.ExistsByTier(dbc, tier, value, self)
	if err != nil {
		return glossary.Wrap(glossary.CodeInternal, "check "+string(tier), err)
	}
	if !exists {
		return nil
	}
	name := strings.TrimSuffix(string(tier), "_text")
	return glossary.NewError(glossary.CodeConflict, "duplicate_"+string(tier), "check "+string(tier),
		fmt.Sprintf("%s with the same %s text already exists", kind, name))
}

func validation(op string, err error) error {
	return &glossary.Error{Code: glossary.CodeValidation, Reason: "unsupported_language", Op: op, Message: err.Error(), Cause: err}
}
