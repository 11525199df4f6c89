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
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/vecindex"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/embed"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

type SearchHit struct {
	Term        *types.Term        `json:"term"`
	Description *types.Description `json:"description"`
	Distance    float32            `json:"distance"`
}

type SearchResult struct {
	Language string      `json:"language"`
	Query    string      `json:"query"`
	Stemmed  string      `json:"stemmed"`
	Hits     []SearchHit `json:"hits"`
}

type SearchService interface {
	Search(ctx context.Context, query string, k int, language string) (*SearchResult, error)
}

type searchService struct {
	db           *gorm.DB
	log          *logger.Logger
	terms        repos.TermRepo
	descriptions repos.DescriptionRepo
	identity     *textidentity.Service
	detector     nlp.Detector
	embedder     embed.Embedder
	index        *vecindex.Index
}

func NewSearchService(
	db *gorm.DB,
	log *logger.Logger,
	terms repos.TermRepo,
	descriptions repos.DescriptionRepo,
	identity *textidentity.Service,
	detector nlp.Detector,
	embedder embed.Embedder,
	index *vecindex.Index,
) SearchService {
	return &searchService{
		db:           db,
		log:          log.With("service", "SearchService"),
		terms:        terms,
		descriptions: descriptions,
		identity:     identity,
		detector:     detector,
		embedder:     embedder,
		index:        index,
	}
}

// Search embeds the stemmed query, the same tier descriptions are embedded
// from, and returns the nearest descriptions with their terms.
func (s *searchService) Search(ctx context.Context, query string, k int, language string) (*SearchResult, error) {
	const op = "search.Search"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("missing_query", op, "query is required")
	}
	if k < vecindex.MinK || k > vecindex.MaxK {
		return nil, invalid("invalid_k", op, fmt.Sprintf("k must be between %d and %d", vecindex.MinK, vecindex.MaxK))
	}
	lang, err := resolveLang(s.detector, language, query, op)
	if err != nil {
		return nil, err
	}
	id, err := s.identity.Canonicalize(query, lang)
	if err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, id.Stemmed, lang)
	if err != nil {
		return nil, glossary.Wrap(glossary.CodeEmbeddingFailure, op, err)
	}
	if len(vec) == 0 {
		return nil, glossary.NewError(glossary.CodeEmbeddingFailure, "embedding_failure", op, "query embedding unavailable")
	}
	hits, err := s.index.Search(vec, k)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Language: string(lang), Query: query, Stemmed: id.Stemmed, Hits: []SearchHit{}}
	if len(hits) == 0 {
		return out, nil
	}
	dbc := dbctx.New(ctx)
	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.DescriptionID)
	}
	descs, err := s.descriptions.GetByIDs(dbc, ids)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	descByID := make(map[uuid.UUID]*types.Description, len(descs))
	termIDs := make([]uuid.UUID, 0, len(descs))
	for _, d := range descs {
		descByID[d.ID] = d
		termIDs = append(termIDs, d.TermID)
	}
	terms, err := s.terms.GetByIDs(dbc, termIDs)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	termByID := make(map[uuid.UUID]*types.Term, len(terms))
	for _, t := range terms {
		termByID[t.ID] = t
	}

	for _, h := range hits {
		d := descByID[h.DescriptionID]
		if d == nil {
			// Deleted between the index read and the row load.
			continue
		}
		t := termByID[d.TermID]
		if t == nil {
			continue
		}
		out.Hits = append(out.Hits, SearchHit{Term: t, Description: d, Distance: h.Distance})
	}
	s.log.Debug("search served", "language", out.Language, "k", k, "hits", len(out.Hits))
	return out, nil
}
