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
	"github.com/yungbote/termbase-backend/internal/modules/glossary/relgraph"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/redisdb"
)

type AddRelationInput struct {
	DescriptionID uuid.UUID
	Position      int
	Subject       string
	SubjectType   *string
	Predicate     string
	PredicateType *string
	Object        string
	ObjectType    *string
}

type RemoveResult struct {
	Relation *types.Relation
	// EdgeRemoved is false when the stored edge no longer carried the row's
	// predicate; the graph is then left untouched.
	EdgeRemoved bool
	Graph       *types.RelationGraph
}

// RelationService reads description graphs and applies single-relation edits.
// Edits hold the per-description lock and commit with a version check on the
// graph row.
type RelationService interface {
	GetGraph(ctx context.Context, descriptionID uuid.UUID) (*types.RelationGraph, error)
	ListRelations(ctx context.Context, descriptionID uuid.UUID) ([]*types.Relation, error)

	Add(ctx context.Context, in AddRelationInput) (*types.Relation, *types.RelationGraph, error)
	Remove(ctx context.Context, relationID uuid.UUID) (*RemoveResult, error)
}

type relationService struct {
	db           *gorm.DB
	log          *logger.Logger
	descriptions repos.DescriptionRepo
	graphs       repos.RelationGraphRepo
	relations    repos.RelationRepo
	locker       redisdb.Locker
	mirror       GraphMirror
}

func NewRelationService(
	db *gorm.DB,
	log *logger.Logger,
	descriptions repos.DescriptionRepo,
	graphs repos.RelationGraphRepo,
	relations repos.RelationRepo,
	locker redisdb.Locker,
	mirror GraphMirror,
) RelationService {
	return &relationService{
		db:           db,
		log:          log.With("service", "RelationService"),
		descriptions: descriptions,
		graphs:       graphs,
		relations:    relations,
		locker:       locker,
		mirror:       mirror,
	}
}

func (s *relationService) requireDescription(dbc dbctx.Context, op string, id uuid.UUID) (*types.Description, error) {
	desc, err := s.descriptions.GetByID(dbc, id)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if desc == nil {
		return nil, notFound("description_not_found", op, fmt.Sprintf("description %s not found", id))
	}
	return desc, nil
}

func (s *relationService) requireGraph(dbc dbctx.Context, op string, descriptionID uuid.UUID) (*types.RelationGraph, error) {
	row, err := s.graphs.GetByDescriptionID(dbc, descriptionID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if row == nil {
		return nil, notFound("graph_not_ready", op, fmt.Sprintf("relation graph for description %s is not built yet", descriptionID))
	}
	return row, nil
}

func (s *relationService) GetGraph(ctx context.Context, descriptionID uuid.UUID) (*types.RelationGraph, error) {
	const op = "relation.GetGraph"
	dbc := dbctx.New(ctx)
	if _, err := s.requireDescription(dbc, op, descriptionID); err != nil {
		return nil, err
	}
	return s.requireGraph(dbc, op, descriptionID)
}

func (s *relationService) ListRelations(ctx context.Context, descriptionID uuid.UUID) ([]*types.Relation, error) {
	const op = "relation.ListRelations"
	dbc := dbctx.New(ctx)
	if _, err := s.requireDescription(dbc, op, descriptionID); err != nil {
		return nil, err
	}
	rows, err := s.relations.ListByDescriptionID(dbc, descriptionID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return rows, nil
}

func (s *relationService) Add(ctx context.Context, in AddRelationInput) (*types.Relation, *types.RelationGraph, error) {
	const op = "relation.Add"
	t := glossary.Triple{
		Position:      in.Position,
		Subject:       strings.TrimSpace(in.Subject),
		SubjectType:   in.SubjectType,
		Predicate:     strings.TrimSpace(in.Predicate),
		PredicateType: in.PredicateType,
		Object:        strings.TrimSpace(in.Object),
		ObjectType:    in.ObjectType,
	}
	if t.Subject == "" || t.Predicate == "" || t.Object == "" {
		return nil, nil, invalid("incomplete_relation", op, "subject, predicate and object are required")
	}
	if _, err := s.requireDescription(dbctx.New(ctx), op, in.DescriptionID); err != nil {
		return nil, nil, err
	}

	unlock, err := s.locker.Lock(ctx, descriptionLockKey(in.DescriptionID))
	if err != nil {
		return nil, nil, glossary.Wrap(glossary.CodeInternal, op, err)
	}
	defer unlock()

	var (
		rel   *types.Relation
		row   *types.RelationGraph
		graph *relgraph.Graph
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		row, err = s.requireGraph(inner, op, in.DescriptionID)
		if err != nil {
			return err
		}
		graph, err = relgraph.Decode(row.Graph)
		if err != nil {
			return glossary.Wrap(glossary.CodeInternal, op, err)
		}
		graph.Add(t)

		created, err := s.relations.Create(inner, []*types.Relation{glossary.RelationFromTriple(in.DescriptionID, row.Language, t)})
		if err != nil {
			return db.MapError(op, err)
		}
		rel = created[0]
		return s.swapGraph(inner, op, row, graph)
	})
	if err != nil {
		return nil, nil, err
	}
	s.syncMirror(ctx, row, graph)
	s.log.Info("relation added", "description_id", in.DescriptionID, "relation_id", rel.ID, "edges", row.TripletCount)
	return rel, row, nil
}

func (s *relationService) Remove(ctx context.Context, relationID uuid.UUID) (*RemoveResult, error) {
	const op = "relation.Remove"
	rel, err := s.relations.GetByID(dbctx.New(ctx), relationID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if rel == nil {
		return nil, notFound("relation_not_found", op, fmt.Sprintf("relation %s not found", relationID))
	}

	unlock, err := s.locker.Lock(ctx, descriptionLockKey(rel.DescriptionID))
	if err != nil {
		return nil, glossary.Wrap(glossary.CodeInternal, op, err)
	}
	defer unlock()

	res := &RemoveResult{Relation: rel}
	var graph *relgraph.Graph
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := s.requireGraph(inner, op, rel.DescriptionID)
		if err != nil {
			return err
		}
		res.Graph = row
		graph, err = relgraph.Decode(row.Graph)
		if err != nil {
			return glossary.Wrap(glossary.CodeInternal, op, err)
		}

		deleted, err := s.relations.FullDeleteByID(inner, relationID)
		if err != nil {
			return db.MapError(op, err)
		}
		if !deleted {
			return notFound("relation_not_found", op, fmt.Sprintf("relation %s not found", relationID))
		}
		res.EdgeRemoved = graph.Remove(rel.Triple())
		if !res.EdgeRemoved {
			return nil
		}
		return s.swapGraph(inner, op, row, graph)
	})
	if err != nil {
		return nil, err
	}
	if res.EdgeRemoved {
		s.syncMirror(ctx, res.Graph, graph)
	}
	s.log.Info("relation removed",
		"description_id", rel.DescriptionID,
		"relation_id", relationID,
		"edge_removed", res.EdgeRemoved,
	)
	return res, nil
}

// swapGraph writes g into row guarded by row.Version; row is updated in place.
func (s *relationService) swapGraph(dbc dbctx.Context, op string, row *types.RelationGraph, g *relgraph.Graph) error {
	doc, err := relgraph.Encode(g)
	if err != nil {
		return glossary.Wrap(glossary.CodeInternal, op, err)
	}
	row.Graph = doc
	row.TripletCount = g.EdgeCount()
	ok, err := s.graphs.CompareAndSwap(dbc, row)
	if err != nil {
		return db.MapError(op, err)
	}
	if !ok {
		return conflict("graph_conflict", op, fmt.Sprintf("relation graph for description %s changed concurrently", row.DescriptionID))
	}
	return nil
}

func (s *relationService) syncMirror(ctx context.Context, row *types.RelationGraph, g *relgraph.Graph) {
	if s.mirror == nil || row == nil || g == nil {
		return
	}
	if err := s.mirror.Sync(ctx, row.DescriptionID, row.Language, g); err != nil {
		s.log.Warn("graph mirror sync failed", "description_id", row.DescriptionID, "error", err)
	}
}
