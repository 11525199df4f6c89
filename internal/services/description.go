package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/db"
	"github.com/yungbote/termbase-backend/internal/data/repos"
	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

type CreateDescriptionInput struct {
	TermID   uuid.UUID
	RawText  string
	Language string
	Info     *string
}

// DescriptionService owns description text. Every mutation persists the
// canonical row first and only then dispatches the derived-artifact jobs.
type DescriptionService interface {
	Create(ctx context.Context, in CreateDescriptionInput) (*types.Description, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Description, error)
	GetByTermID(ctx context.Context, termID uuid.UUID) (*types.Description, error)

	UpdateRaw(ctx context.Context, id uuid.UUID, raw string) (*types.Description, error)
	UpdateCleaned(ctx context.Context, id uuid.UUID, cleaned string) (*types.Description, error)
	UpdateStemmed(ctx context.Context, id uuid.UUID, stemmed string) (*types.Description, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

type descriptionService struct {
	db           *gorm.DB
	log          *logger.Logger
	terms        repos.TermRepo
	descriptions repos.DescriptionRepo
	identity     *textidentity.Service
	detector     nlp.Detector
	coordinator  CoordinatorService
}

func NewDescriptionService(
	db *gorm.DB,
	log *logger.Logger,
	terms repos.TermRepo,
	descriptions repos.DescriptionRepo,
	identity *textidentity.Service,
	detector nlp.Detector,
	coordinator CoordinatorService,
) DescriptionService {
	return &descriptionService{
		db:           db,
		log:          log.With("service", "DescriptionService"),
		terms:        terms,
		descriptions: descriptions,
		identity:     identity,
		detector:     detector,
		coordinator:  coordinator,
	}
}

func (s *descriptionService) Create(ctx context.Context, in CreateDescriptionInput) (*types.Description, bool, error) {
	const op = "description.Create"
	raw := strings.TrimSpace(in.RawText)
	if raw == "" {
		return nil, false, invalid("missing_text", op, "raw_text is required")
	}
	dbc := dbctx.New(ctx)
	term, err := s.terms.GetByID(dbc, in.TermID)
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	if term == nil {
		return nil, false, notFound("term_not_found", op, fmt.Sprintf("term %s not found", in.TermID))
	}
	lang, err := resolveLang(s.detector, in.Language, raw, op)
	if err != nil {
		return nil, false, err
	}

	current, err := s.descriptions.GetByTermID(dbc, in.TermID)
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	if current != nil {
		if current.RawText == raw {
			return current, false, nil
		}
		return nil, false, conflict("description_exists", op, fmt.Sprintf("term %s already has a description", in.TermID))
	}

	id, err := s.identity.Canonicalize(raw, lang)
	if err != nil {
		return nil, false, err
	}
	if err := s.identity.CheckCreate(dbc, s.descriptions, textidentity.KindDescription, id); err != nil {
		return nil, false, err
	}
	row, err := s.descriptions.Create(dbc, &types.Description{
		TermID:      in.TermID,
		Language:    string(lang),
		RawText:     id.Raw,
		CleanedText: id.Cleaned,
		StemmedText: id.Stemmed,
		Info:        in.Info,
	})
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	s.log.Info("description created", "description_id", row.ID, "term_id", row.TermID, "language", row.Language)

	s.coordinator.Dispatch(ctx, cascade.Created, row, textidentity.Change{Raw: true, Cleaned: true, Stemmed: true, Next: id})
	return row, true, nil
}

func (s *descriptionService) Get(ctx context.Context, id uuid.UUID) (*types.Description, error) {
	const op = "description.Get"
	row, err := s.descriptions.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if row == nil {
		return nil, notFound("description_not_found", op, fmt.Sprintf("description %s not found", id))
	}
	return row, nil
}

func (s *descriptionService) GetByTermID(ctx context.Context, termID uuid.UUID) (*types.Description, error) {
	const op = "description.GetByTermID"
	dbc := dbctx.New(ctx)
	term, err := s.terms.GetByID(dbc, termID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if term == nil {
		return nil, notFound("term_not_found", op, fmt.Sprintf("term %s not found", termID))
	}
	row, err := s.descriptions.GetByTermID(dbc, termID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if row == nil {
		return nil, notFound("description_not_found", op, fmt.Sprintf("term %s has no description", termID))
	}
	return row, nil
}

func (s *descriptionService) UpdateRaw(ctx context.Context, id uuid.UUID, raw string) (*types.Description, error) {
	const op = "description.UpdateRaw"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid("missing_text", op, "raw_text is required")
	}
	return s.update(ctx, op, id, cascade.RawTextChanged, func(cur textidentity.Identity, lang nlp.Lang) (textidentity.Change, error) {
		return s.identity.ApplyRaw(cur, raw, lang)
	})
}

func (s *descriptionService) UpdateCleaned(ctx context.Context, id uuid.UUID, cleaned string) (*types.Description, error) {
	const op = "description.UpdateCleaned"
	return s.update(ctx, op, id, cascade.CleanedTextChangedDirectly, func(cur textidentity.Identity, lang nlp.Lang) (textidentity.Change, error) {
		return s.identity.ApplyCleaned(cur, cleaned, lang)
	})
}

func (s *descriptionService) UpdateStemmed(ctx context.Context, id uuid.UUID, stemmed string) (*types.Description, error) {
	const op = "description.UpdateStemmed"
	return s.update(ctx, op, id, cascade.StemmedTextChangedDirectly, func(cur textidentity.Identity, _ nlp.Lang) (textidentity.Change, error) {
		return s.identity.ApplyStemmed(cur, stemmed)
	})
}

func (s *descriptionService) update(ctx context.Context, op string, id uuid.UUID, ev cascade.Event, apply applyFunc) (*types.Description, error) {
	dbc := dbctx.New(ctx)
	desc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lang, err := nlp.ParseLang(desc.Language)
	if err != nil {
		return nil, invalid("unsupported_language", op, err.Error())
	}
	ch, err := apply(identityOf(desc.RawText, desc.CleanedText, desc.StemmedText), lang)
	if err != nil {
		return nil, err
	}
	if !ch.Any() {
		return desc, nil
	}
	if err := s.identity.CheckChange(dbc, s.descriptions, textidentity.KindDescription, ch, id); err != nil {
		return nil, err
	}
	if err := s.descriptions.UpdateFields(dbc, id, ch.Updates()); err != nil {
		return nil, db.MapError(op, err)
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("description text updated",
		"description_id", id,
		"event", string(ev),
		"raw", ch.Raw,
		"cleaned", ch.Cleaned,
		"stemmed", ch.Stemmed,
	)
	s.coordinator.Dispatch(ctx, ev, updated, ch)
	return updated, nil
}

func (s *descriptionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.coordinator.DeleteDescription(ctx, id)
}
