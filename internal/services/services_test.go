package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/relgraph"
	"github.com/yungbote/termbase-backend/internal/platform/apierr"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
)

const descText = "Neural networks learn weights from data"

func seedTerm(t *testing.T, h *harness, raw string) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	topic, _, err := h.topics.Create(ctx, "machine learning", nil)
	if err != nil {
		t.Fatalf("topic Create: %v", err)
	}
	term, created, err := h.terms.Create(ctx, CreateTermInput{TopicID: topic.ID, RawText: raw, Language: "en"})
	if err != nil {
		t.Fatalf("term Create: %v", err)
	}
	if !created {
		t.Fatalf("term %q: expected a new row", raw)
	}
	return topic.ID, term.ID
}

func TestTopicCreateIsIdempotentByName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, created, err := h.topics.Create(ctx, "  biology ", str("life"))
	if err != nil || !created {
		t.Fatalf("first Create: created=%v err=%v", created, err)
	}
	again, created, err := h.topics.Create(ctx, "biology", nil)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if created || again.ID != first.ID {
		t.Fatalf("expected existing topic %s, got %s (created=%v)", first.ID, again.ID, created)
	}

	other, _, err := h.topics.Create(ctx, "chemistry", nil)
	if err != nil {
		t.Fatalf("Create chemistry: %v", err)
	}
	_, err = h.topics.Update(ctx, other.ID, str("biology"), nil)
	wantReason(t, err, "duplicate_topic_name")
	if got := apierr.StatusOf(APIError(err)); got != http.StatusConflict {
		t.Fatalf("status: want=409 got=%d", got)
	}
}

func TestTermCreateIdentityRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	topicID, termID := seedTerm(t, h, "Neural Networks")

	term, err := h.terms.Get(ctx, termID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if term.CleanedText != "neural networks" {
		t.Fatalf("cleaned: got %q", term.CleanedText)
	}
	if term.FirstLetter != "n" {
		t.Fatalf("first letter: got %q", term.FirstLetter)
	}

	same, created, err := h.terms.Create(ctx, CreateTermInput{TopicID: topicID, RawText: "Neural Networks", Language: "en"})
	if err != nil {
		t.Fatalf("repeat Create: %v", err)
	}
	if created || same.ID != termID {
		t.Fatalf("exact raw duplicate should return the existing row")
	}

	_, _, err = h.terms.Create(ctx, CreateTermInput{TopicID: topicID, RawText: "neural networks!", Language: "en"})
	wantReason(t, err, "duplicate_cleaned_text")

	_, _, err = h.terms.Create(ctx, CreateTermInput{TopicID: uuid.New(), RawText: "Perceptron", Language: "en"})
	wantReason(t, err, "topic_not_found")

	_, _, err = h.terms.Create(ctx, CreateTermInput{TopicID: topicID, RawText: "Perceptron", Language: "klingon"})
	wantReason(t, err, "unsupported_language")
}

func TestTermListByFirstLetter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	topicID, _ := seedTerm(t, h, "Neural Networks")
	for _, raw := range []string{"Nodes", "Normalization", "Backpropagation"} {
		if _, _, err := h.terms.Create(ctx, CreateTermInput{TopicID: topicID, RawText: raw, Language: "en"}); err != nil {
			t.Fatalf("Create %q: %v", raw, err)
		}
	}

	rows, err := h.terms.ListByFirstLetter(ctx, topicID, "N", 0)
	if err != nil {
		t.Fatalf("ListByFirstLetter: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: want=3 got=%d", len(rows))
	}
	rows, err = h.terms.ListByFirstLetter(ctx, topicID, "n", 2)
	if err != nil {
		t.Fatalf("ListByFirstLetter limit: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("limited rows: want=2 got=%d", len(rows))
	}
	_, err = h.terms.ListByFirstLetter(ctx, topicID, "n", MaxLetterLimit+1)
	wantReason(t, err, "invalid_limit")
	_, err = h.terms.ListByFirstLetter(ctx, topicID, "ne", 5)
	wantReason(t, err, "invalid_first_letter")
}

func TestTermUpdateRawKeepsCleanedWhenUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	before, _ := h.terms.Get(ctx, termID)

	after, err := h.terms.UpdateRaw(ctx, termID, "Neural networks.")
	if err != nil {
		t.Fatalf("UpdateRaw: %v", err)
	}
	if after.RawText != "Neural networks." {
		t.Fatalf("raw not updated: %q", after.RawText)
	}
	if after.CleanedText != before.CleanedText || after.StemmedText != before.StemmedText {
		t.Fatalf("lower tiers changed: %+v -> %+v", before, after)
	}
}

func TestDescriptionCreateBuildsArtifacts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.extractor.triples = []glossary.Triple{
		{Subject: "networks", Predicate: "learn", Object: "weights"},
		{Subject: "networks", Predicate: "learn", Object: "data"},
		{Subject: "networks", Predicate: "learn", Object: "data"},
	}

	desc, created, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil || !created {
		t.Fatalf("Create: created=%v err=%v", created, err)
	}
	if len(h.queue.jobs) != 2 || len(h.queue.errs) != 0 {
		t.Fatalf("jobs=%v errs=%v", h.queue.jobs, h.queue.errs)
	}

	row, err := h.relations.GetGraph(ctx, desc.ID)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	if row.TripletCount != 2 {
		t.Fatalf("triplet_count: want=2 got=%d", row.TripletCount)
	}
	g, err := relgraph.Decode(row.Graph)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g.EdgeCount() != row.TripletCount {
		t.Fatalf("edge count %d != triplet_count %d", g.EdgeCount(), row.TripletCount)
	}
	rels, err := h.relations.ListRelations(ctx, desc.ID)
	if err != nil {
		t.Fatalf("ListRelations: %v", err)
	}
	if len(rels) != 3 {
		t.Fatalf("relation rows keep every triple: want=3 got=%d", len(rels))
	}
	if !h.index.Has(desc.ID) {
		t.Fatalf("vector not indexed")
	}

	_, _, err = h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: "Something else entirely", Language: "en"})
	wantReason(t, err, "description_exists")
}

func TestDescriptionCleanedEditWithSameStemSchedulesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.queue.reset()

	updated, err := h.descriptions.UpdateCleaned(ctx, desc.ID, "neural network learn weight data")
	if err != nil {
		t.Fatalf("UpdateCleaned: %v", err)
	}
	if updated.CleanedText == desc.CleanedText {
		t.Fatalf("cleaned text not updated")
	}
	if updated.StemmedText != desc.StemmedText {
		t.Fatalf("stemmed changed: %q -> %q", desc.StemmedText, updated.StemmedText)
	}
	if len(h.queue.jobs) != 0 {
		t.Fatalf("expected no jobs, got %v", h.queue.jobs)
	}

	h.queue.reset()
	if _, err := h.descriptions.UpdateStemmed(ctx, desc.ID, "neural net"); err != nil {
		t.Fatalf("UpdateStemmed: %v", err)
	}
	if len(h.queue.jobs) != 1 || h.queue.jobs[0].Kind != cascade.EmbeddingCompute || h.queue.jobs[0].Create {
		t.Fatalf("expected one embedding update job, got %v", h.queue.jobs)
	}
	if len(h.queue.errs) != 0 {
		t.Fatalf("job errors: %v", h.queue.errs)
	}
}

func TestDescriptionRawChangeRebuildsGraph(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.extractor.triples = []glossary.Triple{{Subject: "networks", Predicate: "learn", Object: "weights"}}
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.queue.reset()
	h.extractor.triples = []glossary.Triple{
		{Subject: "models", Predicate: "fit", Object: "data"},
		{Subject: "models", Predicate: "use", Object: "layers"},
	}

	if _, err := h.descriptions.UpdateRaw(ctx, desc.ID, "Neural models fit data using layers"); err != nil {
		t.Fatalf("UpdateRaw: %v", err)
	}
	kinds := map[cascade.JobKind]bool{}
	for _, j := range h.queue.jobs {
		kinds[j.Kind] = true
	}
	if !kinds[cascade.GraphRebuild] || !kinds[cascade.EmbeddingCompute] {
		t.Fatalf("expected graph and embedding jobs, got %v", h.queue.jobs)
	}
	row, err := h.relations.GetGraph(ctx, desc.ID)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	if row.TripletCount != 2 {
		t.Fatalf("triplet_count: want=2 got=%d", row.TripletCount)
	}
}

func TestStaleJobsAreSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.queue.hold = true
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	job := cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: desc.ID, Text: "older text", Lang: "english", Create: true}
	if err := h.coordinator.RebuildGraph(ctx, job); err != nil {
		t.Fatalf("RebuildGraph: %v", err)
	}
	if row, _ := h.graphRepo.GetByDescriptionID(dbctx.New(ctx), desc.ID); row != nil {
		t.Fatalf("stale job wrote a graph")
	}

	job = cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: desc.ID, Text: "older", Lang: "english", Create: true}
	if err := h.coordinator.ComputeEmbedding(ctx, job); err != nil {
		t.Fatalf("ComputeEmbedding: %v", err)
	}
	if h.index.Has(desc.ID) {
		t.Fatalf("stale job wrote a vector")
	}

	_, err = h.relations.GetGraph(ctx, desc.ID)
	wantReason(t, err, "graph_not_ready")

	// An edit lands before the create jobs run: the create jobs go stale and
	// the update jobs must still leave the description with both artifacts.
	if _, err := h.descriptions.UpdateRaw(ctx, desc.ID, "Neural models fit data using layers"); err != nil {
		t.Fatalf("UpdateRaw: %v", err)
	}
	if errs := h.queue.drain(ctx); len(errs) != 0 {
		t.Fatalf("drain: %v", errs)
	}
	if _, err := h.relations.GetGraph(ctx, desc.ID); err != nil {
		t.Fatalf("GetGraph after drain: %v", err)
	}
	if !h.index.Has(desc.ID) {
		t.Fatalf("vector missing after drain")
	}
}

func TestUpdateJobCreatesMissingArtifacts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.extractor.triples = []glossary.Triple{{Subject: "networks", Predicate: "learn", Object: "weights"}}
	h.queue.hold = true
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	job := cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: desc.ID, Text: desc.RawText, Lang: desc.Language}
	if err := h.coordinator.RebuildGraph(ctx, job); err != nil {
		t.Fatalf("RebuildGraph: %v", err)
	}
	row, err := h.relations.GetGraph(ctx, desc.ID)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	if row.TripletCount != 1 {
		t.Fatalf("triplet_count: want=1 got=%d", row.TripletCount)
	}

	job = cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: desc.ID, Text: desc.StemmedText, Lang: desc.Language}
	if err := h.coordinator.ComputeEmbedding(ctx, job); err != nil {
		t.Fatalf("ComputeEmbedding: %v", err)
	}
	if !h.index.Has(desc.ID) {
		t.Fatalf("vector not created")
	}
}

func TestConcurrentRelationAddsSerialize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.extractor.triples = []glossary.Triple{{Subject: "networks", Predicate: "learn", Object: "weights"}}
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before, err := h.relations.GetGraph(ctx, desc.ID)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = h.relations.Add(ctx, AddRelationInput{
				DescriptionID: desc.ID,
				Subject:       fmt.Sprintf("layer%d", i),
				Predicate:     "feeds",
				Object:        fmt.Sprintf("unit%d", i),
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	after, err := h.relations.GetGraph(ctx, desc.ID)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	g, err := relgraph.Decode(after.Graph)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if after.TripletCount != before.TripletCount+n || g.EdgeCount() != after.TripletCount {
		t.Fatalf("lost updates: triplet_count=%d edges=%d want=%d", after.TripletCount, g.EdgeCount(), before.TripletCount+n)
	}
	if after.Version != before.Version+n {
		t.Fatalf("version: want=%d got=%d", before.Version+n, after.Version)
	}
	rels, _ := h.relations.ListRelations(ctx, desc.ID)
	if len(rels) != before.TripletCount+n {
		t.Fatalf("relation rows: want=%d got=%d", before.TripletCount+n, len(rels))
	}
}

func TestSingleRelationEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.extractor.triples = []glossary.Triple{{Subject: "networks", Predicate: "learn", Object: "weights"}}
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rel, row, err := h.relations.Add(ctx, AddRelationInput{DescriptionID: desc.ID, Subject: "weights", Predicate: "encode", Object: "features"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if row.TripletCount != 2 {
		t.Fatalf("after add: want=2 got=%d", row.TripletCount)
	}

	// Overwrite the same pair with another predicate; the first row no longer
	// matches the stored edge.
	if _, _, err := h.relations.Add(ctx, AddRelationInput{DescriptionID: desc.ID, Subject: "weights", Predicate: "store", Object: "features"}); err != nil {
		t.Fatalf("Add overwrite: %v", err)
	}
	res, err := h.relations.Remove(ctx, rel.ID)
	if err != nil {
		t.Fatalf("Remove mismatched: %v", err)
	}
	if res.EdgeRemoved {
		t.Fatalf("edge should not be removed on predicate mismatch")
	}
	cur, _ := h.relations.GetGraph(ctx, desc.ID)
	if cur.TripletCount != 2 {
		t.Fatalf("count changed without removal: %d", cur.TripletCount)
	}

	rels, _ := h.relations.ListRelations(ctx, desc.ID)
	var storeID uuid.UUID
	for _, r := range rels {
		if r.Predicate == "store" {
			storeID = r.ID
		}
	}
	res, err = h.relations.Remove(ctx, storeID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !res.EdgeRemoved || res.Graph.TripletCount != 1 {
		t.Fatalf("remove result: %+v", res)
	}
	g, _ := relgraph.Decode(res.Graph.Graph)
	if g.HasNode("features") {
		t.Fatalf("orphan node not pruned")
	}

	_, err = h.relations.Remove(ctx, storeID)
	wantReason(t, err, "relation_not_found")
	_, _, err = h.relations.Add(ctx, AddRelationInput{DescriptionID: desc.ID, Subject: "x", Object: "y"})
	wantReason(t, err, "incomplete_relation")
}

func TestDeleteTopicCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	topicID, termID := seedTerm(t, h, "Neural Networks")
	h.extractor.triples = []glossary.Triple{{Subject: "networks", Predicate: "learn", Object: "weights"}}
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.topics.Delete(ctx, topicID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	dbc := dbctx.New(ctx)
	if row, _ := h.descRepo.GetByID(dbc, desc.ID); row != nil {
		t.Fatalf("description survived")
	}
	if row, _ := h.termRepo.GetByID(dbc, termID); row != nil {
		t.Fatalf("term survived")
	}
	if row, _ := h.graphRepo.GetByDescriptionID(dbc, desc.ID); row != nil {
		t.Fatalf("graph survived")
	}
	if rels, _ := h.relationRepo.ListByDescriptionID(dbc, desc.ID); len(rels) != 0 {
		t.Fatalf("relations survived: %d", len(rels))
	}
	if h.index.Has(desc.ID) {
		t.Fatalf("vector survived")
	}

	err = h.topics.Delete(ctx, topicID)
	var ae *apierr.Error
	if !errors.As(APIError(err), &ae) || ae.Status != http.StatusNotFound {
		t.Fatalf("second delete: want 404, got %v", err)
	}
}

func TestSearchRanksExactDescriptionFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	topicID, termID := seedTerm(t, h, "Neural Networks")
	other, _, err := h.terms.Create(ctx, CreateTermInput{TopicID: topicID, RawText: "Gradient Descent", Language: "en"})
	if err != nil {
		t.Fatalf("term Create: %v", err)
	}
	want, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("desc Create: %v", err)
	}
	if _, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: other.ID, RawText: "Optimization walks downhill along the loss surface", Language: "en"}); err != nil {
		t.Fatalf("desc Create: %v", err)
	}

	res, err := h.search.Search(ctx, descText, 5, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Language != "english" {
		t.Fatalf("detected language: %q", res.Language)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("hits: want=2 got=%d", len(res.Hits))
	}
	if res.Hits[0].Description.ID != want.ID || res.Hits[0].Term.ID != termID {
		t.Fatalf("first hit: %+v", res.Hits[0])
	}
	if res.Hits[0].Distance > res.Hits[1].Distance {
		t.Fatalf("hits not ascending")
	}

	_, err = h.search.Search(ctx, descText, 0, "en")
	wantReason(t, err, "invalid_k")
}

func TestReindexRepairsMissingArtifacts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, termID := seedTerm(t, h, "Neural Networks")
	h.queue.hold = true
	desc, _, err := h.descriptions.Create(ctx, CreateDescriptionInput{TermID: termID, RawText: descText, Language: "en"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	report, err := h.coordinator.Reindex(ctx, ReindexOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if report.Descriptions != 1 || report.GraphsRebuilt != 1 || report.VectorsComputed != 1 || report.Failures != 0 {
		t.Fatalf("report: %+v", report)
	}
	if _, err := h.relations.GetGraph(ctx, desc.ID); err != nil {
		t.Fatalf("GetGraph after reindex: %v", err)
	}

	report, err = h.coordinator.Reindex(ctx, ReindexOptions{})
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if report.GraphsRebuilt != 0 || report.VectorsComputed != 0 {
		t.Fatalf("nothing should be rebuilt: %+v", report)
	}
}
