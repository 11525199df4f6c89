package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"

	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

// Cached memoizes an embedder in badger, keyed by backend name, language and
// text. Cache failures fall through to the wrapped embedder.
type Cached struct {
	next Embedder
	db   *badger.DB
	log  *logger.Logger
}

// NewCached opens a badger store at dir; ":memory:" keeps it in memory.
func NewCached(next Embedder, dir string, log *logger.Logger) (*Cached, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &Cached{next: next, db: db, log: log.With("component", "EmbeddingCache")}, nil
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Close() error { return c.db.Close() }

func (c *Cached) Embed(ctx context.Context, text string, lang nlp.Lang) ([]float32, error) {
	key := c.key(text, lang)

	var hit []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := decodeFloats(val)
			hit = v
			return err
		})
	})
	switch {
	case err == nil && len(hit) > 0:
		return hit, nil
	case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
		c.log.Warn("embedding cache read failed", "error", err)
	}

	vec, err := c.next.Embed(ctx, text, lang)
	if err != nil || len(vec) == 0 {
		return vec, err
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeFloats(vec))
	}); err != nil {
		c.log.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func (c *Cached) key(text string, lang nlp.Lang) []byte {
	sum := sha256.Sum256([]byte(c.next.Name() + "|" + string(lang) + "|" + text))
	return []byte("emb:" + hex.EncodeToString(sum[:]))
}

func encodeFloats(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
