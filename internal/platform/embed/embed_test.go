package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viterin/vek/vek32"

	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

func TestHashingDeterministic(t *testing.T) {
	h := NewHashing(DefaultHashingDims)
	ctx := context.Background()

	a, err := h.Embed(ctx, "cat chase mous", nlp.English)
	require.NoError(t, err)
	require.Len(t, a, DefaultHashingDims)
	b, err := h.Embed(ctx, "cat chase mous", nlp.English)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, vek32.Norm(a), 1e-5)

	near, _ := h.Embed(ctx, "cat chase bird", nlp.English)
	far, _ := h.Embed(ctx, "quantum chromodynam lattic", nlp.English)
	assert.Less(t, vek32.Distance(a, near), vek32.Distance(a, far))

	empty, err := h.Embed(ctx, "   ", nlp.English)
	require.NoError(t, err)
	assert.Nil(t, empty)

	assert.Equal(t, DefaultHashingDims, NewHashing(0).dims)
}

type fakeEino struct {
	calls int
	out   [][]float64
	err   error
}

func (f *fakeEino) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func TestOpenAIConvertsToFloat32(t *testing.T) {
	fe := &fakeEino{out: [][]float64{{0.5, -0.25}}}
	o := NewOpenAI(fe, "text-embedding-3-small")

	vec, err := o.Embed(context.Background(), "cat", nlp.English)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, vec)
	assert.Equal(t, "openai:text-embedding-3-small", o.Name())

	fe.out = nil
	vec, err = o.Embed(context.Background(), "cat", nlp.English)
	require.NoError(t, err)
	assert.Nil(t, vec)

	fe.err = errors.New("boom")
	_, err = o.Embed(context.Background(), "cat", nlp.English)
	require.Error(t, err)
}

type countingEmbedder struct {
	Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, lang nlp.Lang) ([]float32, error) {
	c.calls++
	return c.Embedder.Embed(ctx, text, lang)
}

func TestCachedMemoizes(t *testing.T) {
	inner := &countingEmbedder{Embedder: NewHashing(16)}
	c, err := NewCached(inner, ":memory:", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	first, err := c.Embed(ctx, "cat", nlp.English)
	require.NoError(t, err)
	second, err := c.Embed(ctx, "cat", nlp.English)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = c.Embed(ctx, "cat", nlp.Russian)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "language is part of the key")

	_, err = c.Embed(ctx, "", nlp.English)
	require.NoError(t, err)
	_, err = c.Embed(ctx, "", nlp.English)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls, "empty results are not cached")
}

func TestFloatCodec(t *testing.T) {
	in := []float32{1.5, -2, 0}
	out, err := decodeFloats(encodeFloats(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	_, err = decodeFloats([]byte{1, 2, 3})
	require.Error(t, err)
}
