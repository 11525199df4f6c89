package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/viterin/vek/vek32"

	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

const DefaultHashingDims = 300

// Hashing is a deterministic feature-hashing embedder over whitespace tokens
// and adjacent token pairs. Output is L2-normalized.
type Hashing struct {
	dims int
}

func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = DefaultHashingDims
	}
	return &Hashing{dims: dims}
}

func (h *Hashing) Name() string { return fmt.Sprintf("hashing:%d", h.dims) }

func (h *Hashing) Embed(_ context.Context, text string, lang nlp.Lang) ([]float32, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	vec := make([]float32, h.dims)
	for i, tok := range tokens {
		h.add(vec, string(lang)+"|"+tok, 1)
		if i > 0 {
			h.add(vec, string(lang)+"|"+tokens[i-1]+" "+tok, 0.5)
		}
	}
	norm := vek32.Norm(vec)
	if norm == 0 {
		return nil, nil
	}
	vek32.DivNumber_Inplace(vec, norm)
	return vec, nil
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
