package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/db"
	"github.com/yungbote/termbase-backend/internal/data/repos"
	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

const (
	DefaultLetterLimit = 5
	MaxLetterLimit     = 100
)

type CreateTermInput struct {
	TopicID  uuid.UUID
	RawText  string
	Language string
	Info     *string
}

type TermService interface {
	// Create returns the existing row (created=false) when the same raw text
	// already exists in the topic.
	Create(ctx context.Context, in CreateTermInput) (*types.Term, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Term, error)
	ListByFirstLetter(ctx context.Context, topicID uuid.UUID, letter string, limit int) ([]*types.Term, error)

	UpdateRaw(ctx context.Context, id uuid.UUID, raw string) (*types.Term, error)
	UpdateCleaned(ctx context.Context, id uuid.UUID, cleaned string) (*types.Term, error)
	UpdateStemmed(ctx context.Context, id uuid.UUID, stemmed string) (*types.Term, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

type termService struct {
	db          *gorm.DB
	log         *logger.Logger
	topics      repos.TopicRepo
	terms       repos.TermRepo
	identity    *textidentity.Service
	detector    nlp.Detector
	coordinator CoordinatorService
}

func NewTermService(
	db *gorm.DB,
	log *logger.Logger,
	topics repos.TopicRepo,
	terms repos.TermRepo,
	identity *textidentity.Service,
	detector nlp.Detector,
	coordinator CoordinatorService,
) TermService {
	return &termService{
		db:          db,
		log:         log.With("service", "TermService"),
		topics:      topics,
		terms:       terms,
		identity:    identity,
		detector:    detector,
		coordinator: coordinator,
	}
}

func (s *termService) Create(ctx context.Context, in CreateTermInput) (*types.Term, bool, error) {
	const op = "term.Create"
	raw := strings.TrimSpace(in.RawText)
	if raw == "" {
		return nil, false, invalid("missing_text", op, "raw_text is required")
	}
	dbc := dbctx.New(ctx)
	topic, err := s.topics.GetByID(dbc, in.TopicID)
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	if topic == nil {
		return nil, false, notFound("topic_not_found", op, fmt.Sprintf("topic %s not found", in.TopicID))
	}
	lang, err := resolveLang(s.detector, in.Language, raw, op)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.terms.GetByTier(dbc, glossary.TierRaw, raw)
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	if existing != nil && existing.TopicID == in.TopicID {
		return existing, false, nil
	}

	id, err := s.identity.Canonicalize(raw, lang)
	if err != nil {
		return nil, false, err
	}
	if err := s.identity.CheckCreate(dbc, s.terms, textidentity.KindTerm, id); err != nil {
		return nil, false, err
	}
	row, err := s.terms.Create(dbc, &types.Term{
		TopicID:     in.TopicID,
		Language:    string(lang),
		RawText:     id.Raw,
		CleanedText: id.Cleaned,
		StemmedText: id.Stemmed,
		FirstLetter: id.FirstLetter(),
		Info:        in.Info,
	})
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	s.log.Info("term created", "term_id", row.ID, "topic_id", row.TopicID, "language", row.Language)
	return row, true, nil
}

func (s *termService) Get(ctx context.Context, id uuid.UUID) (*types.Term, error) {
	const op = "term.Get"
	row, err := s.terms.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if row == nil {
		return nil, notFound("term_not_found", op, fmt.Sprintf("term %s not found", id))
	}
	return row, nil
}

func (s *termService) ListByFirstLetter(ctx context.Context, topicID uuid.UUID, letter string, limit int) ([]*types.Term, error) {
	const op = "term.ListByFirstLetter"
	letter = strings.ToLower(strings.TrimSpace(letter))
	if utf8.RuneCountInString(letter) != 1 {
		return nil, invalid("invalid_first_letter", op, "first_letter must be a single character")
	}
	switch {
	case limit == 0:
		limit = DefaultLetterLimit
	case limit < 0 || limit > MaxLetterLimit:
		return nil, invalid("invalid_limit", op, fmt.Sprintf("limit must be between 1 and %d", MaxLetterLimit))
	}
	dbc := dbctx.New(ctx)
	topic, err := s.topics.GetByID(dbc, topicID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if topic == nil {
		return nil, notFound("topic_not_found", op, fmt.Sprintf("topic %s not found", topicID))
	}
	rows, err := s.terms.ListByFirstLetter(dbc, topicID, letter, limit)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return rows, nil
}

func (s *termService) UpdateRaw(ctx context.Context, id uuid.UUID, raw string) (*types.Term, error) {
	const op = "term.UpdateRaw"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid("missing_text", op, "raw_text is required")
	}
	return s.update(ctx, op, id, func(cur textidentity.Identity, lang nlp.Lang) (textidentity.Change, error) {
		return s.identity.ApplyRaw(cur, raw, lang)
	})
}

func (s *termService) UpdateCleaned(ctx context.Context, id uuid.UUID, cleaned string) (*types.Term, error) {
	const op = "term.UpdateCleaned"
	return s.update(ctx, op, id, func(cur textidentity.Identity, lang nlp.Lang) (textidentity.Change, error) {
		return s.identity.ApplyCleaned(cur, cleaned, lang)
	})
}

func (s *termService) UpdateStemmed(ctx context.Context, id uuid.UUID, stemmed string) (*types.Term, error) {
	const op = "term.UpdateStemmed"
	return s.update(ctx, op, id, func(cur textidentity.Identity, _ nlp.Lang) (textidentity.Change, error) {
		return s.identity.ApplyStemmed(cur, stemmed)
	})
}

type applyFunc func(cur textidentity.Identity, lang nlp.Lang) (textidentity.Change, error)

func (s *termService) update(ctx context.Context, op string, id uuid.UUID, apply applyFunc) (*types.Term, error) {
	dbc := dbctx.New(ctx)
	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lang, err := nlp.ParseLang(term.Language)
	if err != nil {
		return nil, invalid("unsupported_language", op, err.Error())
	}
	ch, err := apply(identityOf(term.RawText, term.CleanedText, term.StemmedText), lang)
	if err != nil {
		return nil, err
	}
	if !ch.Any() {
		return term, nil
	}
	if err := s.identity.CheckChange(dbc, s.terms, textidentity.KindTerm, ch, id); err != nil {
		return nil, err
	}
	updates := ch.Updates()
	if ch.Stemmed {
		updates["first_letter"] = ch.Next.FirstLetter()
	}
	if err := s.terms.UpdateFields(dbc, id, updates); err != nil {
		return nil, db.MapError(op, err)
	}
	s.log.Info("term text updated", "term_id", id, "raw", ch.Raw, "cleaned", ch.Cleaned, "stemmed", ch.Stemmed)
	return s.Get(ctx, id)
}

func (s *termService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.coordinator.DeleteTerm(ctx, id)
}

func identityOf(raw, cleaned, stemmed string) textidentity.Identity {
	return textidentity.Identity{
		Raw:        raw,
		Cleaned:    cleaned,
		Stemmed:    stemmed,
		StemTokens: strings.Fields(stemmed),
	}
}
