package textidentity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

type fakeLookup struct {
	rows  map[glossary.Tier]map[string]uuid.UUID
	calls []glossary.Tier
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{rows: map[glossary.Tier]map[string]uuid.UUID{
		glossary.TierRaw:     {},
		glossary.TierCleaned: {},
		glossary.TierStemmed: {},
	}}
}

func (f *fakeLookup) add(id uuid.UUID, ident Identity) {
	f.rows[glossary.TierRaw][ident.Raw] = id
	f.rows[glossary.TierCleaned][ident.Cleaned] = id
	f.rows[glossary.TierStemmed][ident.Stemmed] = id
}

func (f *fakeLookup) ExistsByTier(_ dbctx.Context, tier glossary.Tier, value string, excludeID uuid.UUID) (bool, error) {
	f.calls = append(f.calls, tier)
	id, ok := f.rows[tier][value]
	return ok && id != excludeID, nil
}

func newService(t *testing.T) *Service {
	t.Helper()
	norm, err := nlp.NewNormalizer()
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	return New(norm, nlp.NewStemmer())
}

func TestCanonicalize(t *testing.T) {
	s := newService(t)
	id, err := s.Canonicalize("Velocity is the rate of change of position.", nlp.English)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if id.Cleaned != "velocity rate change position" {
		t.Fatalf("Cleaned: want=%q got=%q", "velocity rate change position", id.Cleaned)
	}
	if id.Stemmed == "" || len(id.StemTokens) != 4 {
		t.Fatalf("Stemmed: got=%q tokens=%v", id.Stemmed, id.StemTokens)
	}
	if id.FirstLetter() != "v" {
		t.Fatalf("FirstLetter: want=v got=%q", id.FirstLetter())
	}

	if _, err := s.Canonicalize("the of and", nlp.English); !glossary.IsCode(err, glossary.CodeValidation) {
		t.Fatalf("Canonicalize stopwords only: want validation got=%v", err)
	}
	if _, err := s.Canonicalize("bonjour", nlp.Lang("french")); !glossary.IsCode(err, glossary.CodeValidation) {
		t.Fatalf("Canonicalize unsupported: want validation got=%v", err)
	}
}

func TestCheckCreateOrder(t *testing.T) {
	s := newService(t)
	ctx := dbctx.Context{Ctx: context.Background()}
	lookup := newFakeLookup()

	existing, _ := s.Canonicalize("Cats eat fish.", nlp.English)
	lookup.add(uuid.New(), existing)

	// Different raw text that cleans to the same thing.
	dup, _ := s.Canonicalize("CATS, eat the fish!", nlp.English)
	err := s.CheckCreate(ctx, lookup, KindDescription, dup)
	if !glossary.IsCode(err, glossary.CodeConflict) || glossary.ReasonOf(err) != "duplicate_cleaned_text" {
		t.Fatalf("CheckCreate: want duplicate_cleaned_text got=%v", err)
	}
	if len(lookup.calls) != 1 || lookup.calls[0] != glossary.TierCleaned {
		t.Fatalf("CheckCreate: cleaned must be checked first, calls=%v", lookup.calls)
	}

	// Same stem, different cleaned text.
	lookup.calls = nil
	stemDup, _ := s.Canonicalize("Cat eats fishes.", nlp.English)
	if stemDup.Stemmed != existing.Stemmed {
		t.Skipf("stemmer produced %q vs %q", stemDup.Stemmed, existing.Stemmed)
	}
	err = s.CheckCreate(ctx, lookup, KindDescription, stemDup)
	if glossary.ReasonOf(err) != "duplicate_stemmed_text" {
		t.Fatalf("CheckCreate: want duplicate_stemmed_text got=%v", err)
	}

	fresh, _ := s.Canonicalize("Dogs chase cars.", nlp.English)
	if err := s.CheckCreate(ctx, lookup, KindDescription, fresh); err != nil {
		t.Fatalf("CheckCreate fresh: %v", err)
	}
}

func TestApplyRawGating(t *testing.T) {
	s := newService(t)
	cur, _ := s.Canonicalize("Velocity is the rate of change of position.", nlp.English)

	// Only stopwords and punctuation differ: cleaned unchanged, so nothing below raw moves.
	ch, err := s.ApplyRaw(cur, "Velocity is THE rate of change of the position!", nlp.English)
	if err != nil {
		t.Fatalf("ApplyRaw: %v", err)
	}
	if !ch.Raw || ch.Cleaned || ch.Stemmed {
		t.Fatalf("ApplyRaw gating: want raw only got=%+v", ch)
	}
	if _, ok := ch.Updates()["stemmed_text"]; ok {
		t.Fatalf("Updates: stemmed must not be written")
	}

	// Cleaned changes but the stem does not.
	ch, err = s.ApplyRaw(cur, "Velocity is the rates of change of position.", nlp.English)
	if err != nil {
		t.Fatalf("ApplyRaw plural: %v", err)
	}
	if !ch.Raw || !ch.Cleaned || ch.Stemmed {
		t.Fatalf("ApplyRaw plural: want raw+cleaned got=%+v", ch)
	}

	// Real content change cascades through every tier.
	ch, err = s.ApplyRaw(cur, "Acceleration is the rate of change of velocity.", nlp.English)
	if err != nil {
		t.Fatalf("ApplyRaw content: %v", err)
	}
	if !ch.Raw || !ch.Cleaned || !ch.Stemmed {
		t.Fatalf("ApplyRaw content: want all tiers got=%+v", ch)
	}

	ch, _ = s.ApplyRaw(cur, cur.Raw, nlp.English)
	if ch.Any() {
		t.Fatalf("ApplyRaw identical: want no change got=%+v", ch)
	}
}

func TestApplyCleanedAndStemmed(t *testing.T) {
	s := newService(t)
	cur, _ := s.Canonicalize("Cats eat fish.", nlp.English)

	ch, err := s.ApplyCleaned(cur, "  cats   eat fish ", nlp.English)
	if err != nil || ch.Any() {
		t.Fatalf("ApplyCleaned whitespace only: change=%+v err=%v", ch, err)
	}
	ch, err = s.ApplyCleaned(cur, "cat eat fish", nlp.English)
	if err != nil {
		t.Fatalf("ApplyCleaned: %v", err)
	}
	if ch.Raw || !ch.Cleaned || ch.Stemmed {
		t.Fatalf("ApplyCleaned same stem: want cleaned only got=%+v", ch)
	}
	ch, _ = s.ApplyCleaned(cur, "dogs eat meat", nlp.English)
	if !ch.Cleaned || !ch.Stemmed || ch.Next.Raw != cur.Raw {
		t.Fatalf("ApplyCleaned new stem: got=%+v", ch)
	}

	ch, err = s.ApplyStemmed(cur, "cat eat fish meat")
	if err != nil || !ch.Stemmed || ch.Cleaned || ch.Raw {
		t.Fatalf("ApplyStemmed: change=%+v err=%v", ch, err)
	}
	if _, err := s.ApplyStemmed(cur, "   "); !glossary.IsCode(err, glossary.CodeValidation) {
		t.Fatalf("ApplyStemmed empty: want validation got=%v", err)
	}
}

func TestCheckChangeExcludesSelf(t *testing.T) {
	s := newService(t)
	ctx := dbctx.Context{Ctx: context.Background()}
	lookup := newFakeLookup()

	self := uuid.New()
	cur, _ := s.Canonicalize("Cats eat fish.", nlp.English)
	lookup.add(self, cur)
	other, _ := s.Canonicalize("Dogs chase cars.", nlp.English)
	lookup.add(uuid.New(), other)

	ch, _ := s.ApplyRaw(cur, "Cats eat the fish.", nlp.English)
	if err := s.CheckChange(ctx, lookup, KindTerm, ch, self); err != nil {
		t.Fatalf("CheckChange self: %v", err)
	}

	ch, _ = s.ApplyRaw(cur, other.Raw, nlp.English)
	err := s.CheckChange(ctx, lookup, KindTerm, ch, self)
	if glossary.ReasonOf(err) != "duplicate_raw_text" {
		t.Fatalf("CheckChange other raw: want duplicate_raw_text got=%v", err)
	}
}
