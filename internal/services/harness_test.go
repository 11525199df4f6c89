package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/repos"
	"github.com/yungbote/termbase-backend/internal/data/repos/testutil"
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/vecindex"
	"github.com/yungbote/termbase-backend/internal/platform/embed"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
	"github.com/yungbote/termbase-backend/internal/platform/redisdb"
)

type fakeExtractor struct {
	triples []glossary.Triple
	calls   int
}

func (f *fakeExtractor) Extract(context.Context, string, nlp.Lang) ([]glossary.Triple, error) {
	f.calls++
	return append([]glossary.Triple(nil), f.triples...), nil
}

// inlineQueue runs jobs on the calling goroutine, or only records them when
// hold is set.
type inlineQueue struct {
	mu          sync.Mutex
	hold        bool
	coordinator CoordinatorService
	jobs        []cascade.Job
	errs        []error
}

func (q *inlineQueue) Enqueue(ctx context.Context, job cascade.Job) bool {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	hold := q.hold
	q.mu.Unlock()
	if hold {
		return true
	}
	var err error
	switch job.Kind {
	case cascade.GraphRebuild:
		err = q.coordinator.RebuildGraph(ctx, job)
	case cascade.EmbeddingCompute:
		err = q.coordinator.ComputeEmbedding(ctx, job)
	}
	if err != nil {
		q.mu.Lock()
		q.errs = append(q.errs, err)
		q.mu.Unlock()
	}
	return true
}

// drain runs every recorded job in enqueue order and clears the record.
func (q *inlineQueue) drain(ctx context.Context) []error {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.hold = false
	q.mu.Unlock()

	var errs []error
	for _, job := range jobs {
		var err error
		switch job.Kind {
		case cascade.GraphRebuild:
			err = q.coordinator.RebuildGraph(ctx, job)
		case cascade.EmbeddingCompute:
			err = q.coordinator.ComputeEmbedding(ctx, job)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (q *inlineQueue) reset() {
	q.mu.Lock()
	q.jobs = nil
	q.errs = nil
	q.mu.Unlock()
}

type harness struct {
	db           *gorm.DB
	queue        *inlineQueue
	extractor    *fakeExtractor
	index        *vecindex.Index
	topicRepo    repos.TopicRepo
	termRepo     repos.TermRepo
	descRepo     repos.DescriptionRepo
	graphRepo    repos.RelationGraphRepo
	relationRepo repos.RelationRepo

	coordinator  CoordinatorService
	topics       TopicService
	terms        TermService
	descriptions DescriptionService
	relations    RelationService
	search       SearchService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)

	norm, err := nlp.NewNormalizer()
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	identity := textidentity.New(norm, nlp.NewStemmer())
	detector := nlp.NewDetector()

	h := &harness{
		db:           db,
		queue:        &inlineQueue{},
		extractor:    &fakeExtractor{},
		topicRepo:    repos.NewTopicRepo(db, log),
		termRepo:     repos.NewTermRepo(db, log),
		descRepo:     repos.NewDescriptionRepo(db, log),
		graphRepo:    repos.NewRelationGraphRepo(db, log),
		relationRepo: repos.NewRelationRepo(db, log),
	}
	h.index = vecindex.New(repos.NewSemanticVectorRepo(db, log), log)
	embedder := embed.NewHashing(embed.DefaultHashingDims)
	locker := redisdb.NewLocalLocker(10 * time.Second)

	h.coordinator = NewCoordinatorService(db, log, CoordinatorDeps{
		Topics:       h.topicRepo,
		Terms:        h.termRepo,
		Descriptions: h.descRepo,
		Graphs:       h.graphRepo,
		Relations:    h.relationRepo,
		Vectors:      h.index,
		Extractor:    h.extractor,
		Embedder:     embedder,
		Locker:       locker,
		Queue:        h.queue,
	})
	h.queue.coordinator = h.coordinator

	h.topics = NewTopicService(db, log, h.topicRepo, h.coordinator)
	h.terms = NewTermService(db, log, h.topicRepo, h.termRepo, identity, detector, h.coordinator)
	h.descriptions = NewDescriptionService(db, log, h.termRepo, h.descRepo, identity, detector, h.coordinator)
	h.relations = NewRelationService(db, log, h.descRepo, h.graphRepo, h.relationRepo, locker, nil)
	h.search = NewSearchService(db, log, h.termRepo, h.descRepo, identity, detector, embedder, h.index)
	return h
}

func str(s string) *string { return &s }

func wantReason(t *testing.T, err error, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with reason %q, got nil", reason)
	}
	if got := glossary.ReasonOf(err); got != reason {
		t.Fatalf("reason: want=%q got=%q (err=%v)", reason, got, err)
	}
}
