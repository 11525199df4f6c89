package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/db"
	"github.com/yungbote/termbase-backend/internal/data/repos"
	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/relgraph"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/vecindex"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/embed"
	"github.com/yungbote/termbase-backend/internal/platform/extract"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
	"github.com/yungbote/termbase-backend/internal/platform/redisdb"
)

// Enqueuer accepts background jobs without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, job cascade.Job) bool
}

// GraphMirror receives best-effort copies of description graphs.
type GraphMirror interface {
	Sync(ctx context.Context, descriptionID uuid.UUID, lang string, g *relgraph.Graph) error
	Delete(ctx context.Context, descriptionID uuid.UUID) error
}

type ReindexOptions struct {
	// Force rebuilds every artifact, not only the missing ones.
	Force       bool
	Concurrency int
}

type ReindexReport struct {
	Descriptions    int64
	GraphsRebuilt   int64
	VectorsComputed int64
	Failures        int64
}

// CoordinatorService keeps derived artifacts consistent with description
// text: it dispatches cascade jobs, runs their bodies and owns the delete
// cascades.
type CoordinatorService interface {
	Dispatch(ctx context.Context, ev cascade.Event, desc *types.Description, ch textidentity.Change) []cascade.Job

	RebuildGraph(ctx context.Context, job cascade.Job) error
	ComputeEmbedding(ctx context.Context, job cascade.Job) error

	DeleteDescription(ctx context.Context, id uuid.UUID) error
	DeleteTerm(ctx context.Context, id uuid.UUID) error
	DeleteTopic(ctx context.Context, id uuid.UUID) error

	Reindex(ctx context.Context, opts ReindexOptions) (ReindexReport, error)
}

type coordinatorService struct {
	db           *gorm.DB
	log          *logger.Logger
	topics       repos.TopicRepo
	terms        repos.TermRepo
	descriptions repos.DescriptionRepo
	graphs       repos.RelationGraphRepo
	relations    repos.RelationRepo
	vectors      *vecindex.Index
	extractor    extract.Extractor
	embedder     embed.Embedder
	locker       redisdb.Locker
	mirror       GraphMirror
	queue        Enqueuer
}

type CoordinatorDeps struct {
	Topics       repos.TopicRepo
	Terms        repos.TermRepo
	Descriptions repos.DescriptionRepo
	Graphs       repos.RelationGraphRepo
	Relations    repos.RelationRepo
	Vectors      *vecindex.Index
	Extractor    extract.Extractor
	Embedder     embed.Embedder
	Locker       redisdb.Locker
	Mirror       GraphMirror
	Queue        Enqueuer
}

func NewCoordinatorService(db *gorm.DB, baseLog *logger.Logger, deps CoordinatorDeps) CoordinatorService {
	return &coordinatorService{
		db:           db,
		log:          baseLog.With("service", "CoordinatorService"),
		topics:       deps.Topics,
		terms:        deps.Terms,
		descriptions: deps.Descriptions,
		graphs:       deps.Graphs,
		relations:    deps.Relations,
		vectors:      deps.Vectors,
		extractor:    deps.Extractor,
		embedder:     deps.Embedder,
		locker:       deps.Locker,
		mirror:       deps.Mirror,
		queue:        deps.Queue,
	}
}

func descriptionLockKey(id uuid.UUID) string { return "description:" + id.String() }

func (s *coordinatorService) Dispatch(ctx context.Context, ev cascade.Event, desc *types.Description, ch textidentity.Change) []cascade.Job {
	if desc == nil {
		return nil
	}
	jobs := cascade.Plan(ev, desc.ID, desc.Language, ch)
	for _, job := range jobs {
		if !s.queue.Enqueue(ctx, job) {
			s.log.Warn("cascade job not scheduled", "event", string(ev), "job_kind", string(job.Kind), "description_id", desc.ID)
		}
	}
	s.log.Debug("cascade dispatched", "event", string(ev), "description_id", desc.ID, "jobs", len(jobs))
	return jobs
}

// RebuildGraph extracts relations from job.Text and replaces the graph and
// relation rows. A job whose text no longer matches the description is
// superseded by a newer one and is skipped; a current update job creates a
// missing graph row.
func (s *coordinatorService) RebuildGraph(ctx context.Context, job cascade.Job) error {
	const op = "coordinator.RebuildGraph"
	lang, err := nlp.ParseLang(job.Lang)
	if err != nil {
		return glossary.Wrap(glossary.CodeValidation, op, err)
	}
	triples, err := s.extractor.Extract(ctx, job.Text, lang)
	if err != nil {
		return glossary.Wrap(glossary.CodeExtractionFailure, op, err)
	}
	g := relgraph.Rebuild(triples)
	doc, err := relgraph.Encode(g)
	if err != nil {
		return glossary.Wrap(glossary.CodeInternal, op, err)
	}

	unlock, err := s.locker.Lock(ctx, descriptionLockKey(job.DescriptionID))
	if err != nil {
		return glossary.Wrap(glossary.CodeInternal, op, err)
	}
	defer unlock()

	skipped := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		desc, err := s.descriptions.GetByID(inner, job.DescriptionID)
		if err != nil {
			return db.MapError(op, err)
		}
		if desc == nil {
			return notFound("description_not_found", op, fmt.Sprintf("description %s no longer exists", job.DescriptionID))
		}
		if desc.RawText != job.Text {
			skipped = true
			return nil
		}

		row := &types.RelationGraph{
			DescriptionID: job.DescriptionID,
			TripletCount:  g.EdgeCount(),
			Graph:         doc,
			Language:      job.Lang,
		}
		if job.Create {
			if err := s.graphs.Upsert(inner, row); err != nil {
				return db.MapError(op, err)
			}
		} else {
			found, err := s.graphs.Replace(inner, row)
			if err != nil {
				return db.MapError(op, err)
			}
			if !found {
				// The create job was superseded before it ran; this job
				// carries the current text, so it builds the row.
				s.log.Info("graph missing on update, creating", "description_id", job.DescriptionID)
				if err := s.graphs.Upsert(inner, row); err != nil {
					return db.MapError(op, err)
				}
			}
		}

		rows := make([]*types.Relation, 0, len(triples))
		for _, t := range triples {
			rows = append(rows, glossary.RelationFromTriple(job.DescriptionID, job.Lang, t))
		}
		if err := s.relations.ReplaceForDescription(inner, job.DescriptionID, rows); err != nil {
			return db.MapError(op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if skipped {
		s.log.Info("stale graph job skipped", "description_id", job.DescriptionID)
		return nil
	}

	if s.mirror != nil {
		if err := s.mirror.Sync(ctx, job.DescriptionID, job.Lang, g); err != nil {
			s.log.Warn("graph mirror sync failed", "description_id", job.DescriptionID, "error", err)
		}
	}
	s.log.Info("relation graph rebuilt",
		"description_id", job.DescriptionID,
		"relations", len(triples),
		"edges", g.EdgeCount(),
		"nodes", g.NodeCount(),
	)
	return nil
}

// ComputeEmbedding embeds job.Text and writes the vector. Stale jobs are
// skipped; an update job whose text is current creates a missing vector.
func (s *coordinatorService) ComputeEmbedding(ctx context.Context, job cascade.Job) error {
	const op = "coordinator.ComputeEmbedding"
	lang, err := nlp.ParseLang(job.Lang)
	if err != nil {
		return glossary.Wrap(glossary.CodeValidation, op, err)
	}
	vec, err := s.embedder.Embed(ctx, job.Text, lang)
	if err != nil {
		return glossary.Wrap(glossary.CodeEmbeddingFailure, op, err)
	}
	if len(vec) == 0 {
		return glossary.NewError(glossary.CodeEmbeddingFailure, "embedding_unavailable", op,
			fmt.Sprintf("embedder %s returned no vector", s.embedder.Name()))
	}

	unlock, err := s.locker.Lock(ctx, descriptionLockKey(job.DescriptionID))
	if err != nil {
		return glossary.Wrap(glossary.CodeInternal, op, err)
	}
	defer unlock()

	dbc := dbctx.New(ctx)
	desc, err := s.descriptions.GetByID(dbc, job.DescriptionID)
	if err != nil {
		return db.MapError(op, err)
	}
	if desc == nil {
		return notFound("description_not_found", op, fmt.Sprintf("description %s no longer exists", job.DescriptionID))
	}
	if desc.StemmedText != job.Text {
		s.log.Info("stale embedding job skipped", "description_id", job.DescriptionID)
		return nil
	}

	if job.Create {
		err = s.vectors.Upsert(dbc, job.DescriptionID, vec, job.Lang)
	} else {
		err = s.vectors.Replace(dbc, job.DescriptionID, vec, job.Lang)
		if glossary.IsCode(err, glossary.CodeNotFound) {
			s.log.Info("vector missing on update, creating", "description_id", job.DescriptionID)
			err = s.vectors.Upsert(dbc, job.DescriptionID, vec, job.Lang)
		}
	}
	if err != nil {
		return err
	}
	s.log.Info("embedding stored", "description_id", job.DescriptionID, "dims", len(vec))
	return nil
}

// DeleteDescription removes the vector, relation rows, graph and mirror, then
// the description. Child failures are logged and do not stop the cascade.
func (s *coordinatorService) DeleteDescription(ctx context.Context, id uuid.UUID) error {
	const op = "coordinator.DeleteDescription"
	dbc := dbctx.New(ctx)
	desc, err := s.descriptions.GetByID(dbc, id)
	if err != nil {
		return db.MapError(op, err)
	}
	if desc == nil {
		return notFound("description_not_found", op, fmt.Sprintf("description %s not found", id))
	}
	return s.deleteDescription(ctx, id)
}

func (s *coordinatorService) deleteDescription(ctx context.Context, id uuid.UUID) error {
	const op = "coordinator.DeleteDescription"
	unlock, err := s.locker.Lock(ctx, descriptionLockKey(id))
	if err != nil {
		s.log.Warn("delete proceeding without description lock", "description_id", id, "error", err)
		unlock = func() {}
	}
	defer unlock()

	dbc := dbctx.New(ctx)
	steps := []struct {
		name string
		run  func() error
	}{
		{"semantic_vector", func() error { return s.vectors.Delete(dbc, id) }},
		{"relations", func() error { return s.relations.FullDeleteByDescriptionID(dbc, id) }},
		{"relation_graph", func() error { return s.graphs.FullDeleteByDescriptionID(dbc, id) }},
		{"graph_mirror", func() error {
			if s.mirror == nil {
				return nil
			}
			return s.mirror.Delete(ctx, id)
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.log.Warn("delete cascade step failed (continuing)", "description_id", id, "step", step.name, "error", err)
		}
	}
	if err := s.descriptions.FullDeleteByID(dbc, id); err != nil {
		return db.MapError(op, err)
	}
	s.log.Info("description deleted", "description_id", id)
	return nil
}

func (s *coordinatorService) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	const op = "coordinator.DeleteTerm"
	dbc := dbctx.New(ctx)
	term, err := s.terms.GetByID(dbc, id)
	if err != nil {
		return db.MapError(op, err)
	}
	if term == nil {
		return notFound("term_not_found", op, fmt.Sprintf("term %s not found", id))
	}
	return s.deleteTerm(ctx, id)
}

func (s *coordinatorService) deleteTerm(ctx context.Context, id uuid.UUID) error {
	const op = "coordinator.DeleteTerm"
	dbc := dbctx.New(ctx)
	desc, err := s.descriptions.GetByTermID(dbc, id)
	if err != nil {
		return db.MapError(op, err)
	}
	if desc != nil {
		if err := s.deleteDescription(ctx, desc.ID); err != nil {
			return err
		}
	}
	if err := s.terms.FullDeleteByID(dbc, id); err != nil {
		return db.MapError(op, err)
	}
	return nil
}

func (s *coordinatorService) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	const op = "coordinator.DeleteTopic"
	dbc := dbctx.New(ctx)
	topic, err := s.topics.GetByID(dbc, id)
	if err != nil {
		return db.MapError(op, err)
	}
	if topic == nil {
		return notFound("topic_not_found", op, fmt.Sprintf("topic %s not found", id))
	}
	terms, err := s.terms.ListByTopic(dbc, id)
	if err != nil {
		return db.MapError(op, err)
	}
	for _, t := range terms {
		if err := s.deleteTerm(ctx, t.ID); err != nil {
			return err
		}
	}
	if err := s.topics.FullDeleteByID(dbc, id); err != nil {
		return db.MapError(op, err)
	}
	s.log.Info("topic deleted", "topic_id", id, "terms", len(terms))
	return nil
}

// Reindex walks every description and runs the artifact jobs synchronously,
// for missing artifacts or for all of them when Force is set. The vector
// index must be loaded first.
func (s *coordinatorService) Reindex(ctx context.Context, opts ReindexOptions) (ReindexReport, error) {
	const op = "coordinator.Reindex"
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	var (
		report                    ReindexReport
		descs, graphs, vecs, fail atomic.Int64
	)

	after := uuid.Nil
	for {
		batch, err := s.descriptions.ListIDs(dbctx.New(ctx), after, 200)
		if err != nil {
			return report, db.MapError(op, err)
		}
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for _, d := range batch {
			d := d
			g.Go(func() error {
				descs.Add(1)
				dbc := dbctx.New(gctx)
				needGraph, needVec := opts.Force, opts.Force
				if !opts.Force {
					gr, err := s.graphs.GetByDescriptionID(dbc, d.ID)
					if err != nil {
						return db.MapError(op, err)
					}
					needGraph = gr == nil
					needVec = !s.vectors.Has(d.ID)
				}
				if needGraph {
					job := cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: d.ID, Text: d.RawText, Lang: d.Language, Create: true}
					if err := s.RebuildGraph(gctx, job); err != nil {
						fail.Add(1)
						s.log.Warn("reindex graph failed", "description_id", d.ID, "error", err)
					} else {
						graphs.Add(1)
					}
				}
				if needVec {
					job := cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: d.ID, Text: d.StemmedText, Lang: d.Language, Create: true}
					if err := s.ComputeEmbedding(gctx, job); err != nil {
						fail.Add(1)
						s.log.Warn("reindex embedding failed", "description_id", d.ID, "error", err)
					} else {
						vecs.Add(1)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
		after = batch[len(batch)-1].ID
	}

	report = ReindexReport{
		Descriptions:    descs.Load(),
		GraphsRebuilt:   graphs.Load(),
		VectorsComputed: vecs.Load(),
		Failures:        fail.Load(),
	}
	s.log.Info("reindex finished",
		"descriptions", report.Descriptions,
		"graphs", report.GraphsRebuilt,
		"vectors", report.VectorsComputed,
		"failures", report.Failures,
	)
	return report, nil
}
