// Package vecindex keeps every description embedding in memory for brute-force
// k-nearest-neighbour search and writes through to the semantic_vector table.
package vecindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/viterin/vek/vek32"
	"gorm.io/datatypes"

	"github.com/yungbote/termbase-backend/internal/data/db"
	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

const (
	MinK = 1
	MaxK = 100
)

// Store is the subset of the semantic vector repo the index needs.
type Store interface {
	Upsert(dbc dbctx.Context, row *types.SemanticVector) error
	Replace(dbc dbctx.Context, row *types.SemanticVector) (bool, error)
	ListAll(dbc dbctx.Context, batch int, fn func([]*types.SemanticVector) error) error
	FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error
}

type Hit struct {
	DescriptionID uuid.UUID `json:"description_id"`
	Distance      float32   `json:"distance"`
}

type entry struct {
	vec []float32
	seq uint64
}

type Index struct {
	store Store
	log   *logger.Logger

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
	nextSeq uint64
}

func New(store Store, baseLog *logger.Logger) *Index {
	return &Index{
		store:   store,
		log:     baseLog.With("component", "VectorIndex"),
		entries: map[uuid.UUID]*entry{},
	}
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) Has(descriptionID uuid.UUID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[descriptionID]
	return ok
}

// Upsert creates or replaces the vector for descriptionID.
func (ix *Index) Upsert(dbc dbctx.Context, descriptionID uuid.UUID, vec []float32, lang string) error {
	const op = "vecindex.Upsert"
	row, err := newRow(op, descriptionID, vec, lang)
	if err != nil {
		return err
	}
	if err := ix.store.Upsert(dbc, row); err != nil {
		return db.MapError(op, err)
	}
	ix.put(descriptionID, vec)
	return nil
}

// Replace overwrites an existing vector and fails with NotFound when the
// description has none yet.
func (ix *Index) Replace(dbc dbctx.Context, descriptionID uuid.UUID, vec []float32, lang string) error {
	const op = "vecindex.Replace"
	row, err := newRow(op, descriptionID, vec, lang)
	if err != nil {
		return err
	}
	found, err := ix.store.Replace(dbc, row)
	if err != nil {
		return db.MapError(op, err)
	}
	if !found {
		return glossary.NewError(glossary.CodeNotFound, "vector_not_found", op,
			fmt.Sprintf("no semantic vector for description %s", descriptionID))
	}
	ix.put(descriptionID, vec)
	return nil
}

func (ix *Index) Delete(dbc dbctx.Context, descriptionID uuid.UUID) error {
	if err := ix.store.FullDeleteByDescriptionID(dbc, descriptionID); err != nil {
		return db.MapError("vecindex.Delete", err)
	}
	ix.mu.Lock()
	delete(ix.entries, descriptionID)
	ix.mu.Unlock()
	return nil
}

// Load replaces the in-memory entries with the stored rows, in creation order.
func (ix *Index) Load(ctx context.Context) error {
	entries := map[uuid.UUID]*entry{}
	var seq uint64
	skipped := 0
	err := ix.store.ListAll(dbctx.New(ctx), 500, func(rows []*types.SemanticVector) error {
		for _, row := range rows {
			vec, err := DecodeVector(row.Vector)
			if err != nil || len(vec) == 0 {
				skipped++
				ix.log.Warn("skipping unreadable semantic vector", "description_id", row.DescriptionID, "error", err)
				continue
			}
			seq++
			entries[row.DescriptionID] = &entry{vec: vec, seq: seq}
		}
		return nil
	})
	if err != nil {
		return db.MapError("vecindex.Load", err)
	}
	ix.mu.Lock()
	ix.entries = entries
	ix.nextSeq = seq
	ix.mu.Unlock()
	ix.log.Info("vector index loaded", "count", len(entries), "skipped", skipped)
	return nil
}

// Search returns the k entries closest to query by Euclidean distance,
// ascending, ties broken by insertion order. Entries whose dimension differs
// from the query are skipped.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	const op = "vecindex.Search"
	if k < MinK || k > MaxK {
		return nil, glossary.NewError(glossary.CodeValidation, "invalid_k", op,
			fmt.Sprintf("k must be between %d and %d, got %d", MinK, MaxK, k))
	}
	if len(query) == 0 {
		return nil, glossary.NewError(glossary.CodeValidation, "empty_query_vector", op, "query vector is empty")
	}

	type scored struct {
		Hit
		seq uint64
	}
	ix.mu.RLock()
	out := make([]scored, 0, len(ix.entries))
	mismatched := 0
	for id, e := range ix.entries {
		if len(e.vec) != len(query) {
			mismatched++
			continue
		}
		out = append(out, scored{Hit: Hit{DescriptionID: id, Distance: vek32.Distance(query, e.vec)}, seq: e.seq})
	}
	ix.mu.RUnlock()

	if mismatched > 0 {
		ix.log.Warn("skipped vectors with mismatched dimensions", "query_dims", len(query), "count", mismatched)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].seq < out[j].seq
	})
	if len(out) > k {
		out = out[:k]
	}
	hits := make([]Hit, len(out))
	for i := range out {
		hits[i] = out[i].Hit
	}
	return hits, nil
}

func (ix *Index) put(descriptionID uuid.UUID, vec []float32) {
	cp := append([]float32(nil), vec...)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if e, ok := ix.entries[descriptionID]; ok {
		e.vec = cp
		return
	}
	ix.nextSeq++
	ix.entries[descriptionID] = &entry{vec: cp, seq: ix.nextSeq}
}

func newRow(op string, descriptionID uuid.UUID, vec []float32, lang string) (*types.SemanticVector, error) {
	if descriptionID == uuid.Nil {
		return nil, glossary.NewError(glossary.CodeValidation, "missing_description_id", op, "description id is required")
	}
	if len(vec) == 0 {
		return nil, glossary.NewError(glossary.CodeEmbeddingFailure, "embedding_unavailable", op,
			fmt.Sprintf("no embedding for description %s", descriptionID))
	}
	raw, err := EncodeVector(vec)
	if err != nil {
		return nil, glossary.Wrap(glossary.CodeInternal, op, err)
	}
	return &types.SemanticVector{
		DescriptionID: descriptionID,
		Vector:        raw,
		Dims:          len(vec),
		Language:      lang,
	}, nil
}

func EncodeVector(vec []float32) (datatypes.JSON, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func DecodeVector(raw datatypes.JSON) ([]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
