package embed

import (
	"context"
	"fmt"
	"strings"

	openaiembedding "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

// OpenAI embeds through an eino embedding component.
type OpenAI struct {
	emb   embedding.Embedder
	model string
}

func NewOpenAI(emb embedding.Embedder, model string) *OpenAI {
	return &OpenAI{emb: emb, model: model}
}

func NewOpenAIFromConfig(ctx context.Context, cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for EMBED_BACKEND=openai")
	}
	ec := &openaiembedding.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}
	if cfg.Dimensions > 0 {
		dims := cfg.Dimensions
		ec.Dimensions = &dims
	}
	emb, err := openaiembedding.NewEmbedder(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return NewOpenAI(emb, cfg.Model), nil
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

func (o *OpenAI) Embed(ctx context.Context, text string, _ nlp.Lang) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	res, err := o.emb.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || len(res[0]) == 0 {
		return nil, nil
	}
	out := make([]float32, len(res[0]))
	for i, v := range res[0] {
		out[i] = float32(v)
	}
	return out, nil
}
