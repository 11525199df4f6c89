package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/jobs/pipeline/embedding_compute"
	"github.com/yungbote/termbase-backend/internal/jobs/pipeline/graph_rebuild"
	"github.com/yungbote/termbase-backend/internal/jobs/runtime"
	"github.com/yungbote/termbase-backend/internal/jobs/worker"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/vecindex"
	"github.com/yungbote/termbase-backend/internal/observability"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
	"github.com/yungbote/termbase-backend/internal/services"
)

type Services struct {
	Index       *vecindex.Index
	Worker      *worker.Pool
	Coordinator services.CoordinatorService

	Topic       services.TopicService
	Term        services.TermService
	Description services.DescriptionService
	Relation    services.RelationService
	Search      services.SearchService
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	norm, err := nlp.NewNormalizer()
	if err != nil {
		return Services{}, fmt.Errorf("init normalizer: %w", err)
	}
	identity := textidentity.New(norm, nlp.NewStemmer())
	detector := nlp.NewDetector()

	index := vecindex.New(reposet.SemanticVector, log)
	if err := index.Load(ctx); err != nil {
		return Services{}, fmt.Errorf("load vector index: %w", err)
	}
	metrics.SetVectorIndexSize(index.Len())

	registry := runtime.NewRegistry()
	pool := worker.NewPool(log, registry, worker.ConfigFromEnv())
	if metrics != nil {
		pool.WithObserver(metrics)
	}

	var mirror services.GraphMirror
	if clients.Mirror.Enabled() {
		mirror = clients.Mirror
	}

	coordinator := services.NewCoordinatorService(db, log, services.CoordinatorDeps{
		Topics:       reposet.Topic,
		Terms:        reposet.Term,
		Descriptions: reposet.Description,
		Graphs:       reposet.RelationGraph,
		Relations:    reposet.Relation,
		Vectors:      index,
		Extractor:    clients.Extractor,
		Embedder:     clients.Embedder,
		Locker:       clients.Locker,
		Mirror:       mirror,
		Queue:        pool,
	})

	if err := registry.Register(graph_rebuild.New(coordinator)); err != nil {
		return Services{}, fmt.Errorf("register graph pipeline: %w", err)
	}
	if err := registry.Register(embedding_compute.New(coordinator)); err != nil {
		return Services{}, fmt.Errorf("register embedding pipeline: %w", err)
	}

	return Services{
		Index:       index,
		Worker:      pool,
		Coordinator: coordinator,

		Topic:       services.NewTopicService(db, log, reposet.Topic, coordinator),
		Term:        services.NewTermService(db, log, reposet.Topic, reposet.Term, identity, detector, coordinator),
		Description: services.NewDescriptionService(db, log, reposet.Term, reposet.Description, identity, detector, coordinator),
		Relation:    services.NewRelationService(db, log, reposet.Description, reposet.RelationGraph, reposet.Relation, clients.Locker, mirror),
		Search:      services.NewSearchService(db, log, reposet.Term, reposet.Description, identity, detector, clients.Embedder, index),
	}, nil
}
