// Package embed computes description embeddings.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/termbase-backend/internal/platform/envutil"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

// Embedder returns one vector per text. A nil vector with a nil error means
// the backend had nothing to offer for the text.
type Embedder interface {
	Embed(ctx context.Context, text string, lang nlp.Lang) ([]float32, error)
	// Name identifies the backend and model; cached vectors are keyed by it.
	Name() string
}

const (
	BackendOpenAI  = "openai"
	BackendHashing = "hashing"
)

type Config struct {
	Backend     string
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	HashingDims int
	CacheDir    string
}

func ConfigFromEnv() Config {
	return Config{
		Backend:     strings.ToLower(envutil.String("EMBED_BACKEND", BackendHashing)),
		APIKey:      envutil.String("OPENAI_API_KEY", ""),
		BaseURL:     envutil.String("OPENAI_BASE_URL", ""),
		Model:       envutil.String("EMBED_MODEL", "text-embedding-3-small"),
		Dimensions:  envutil.Int("EMBED_DIMENSIONS", 0),
		HashingDims: envutil.Int("EMBED_HASHING_DIMS", DefaultHashingDims),
		CacheDir:    envutil.String("EMBED_CACHE_DIR", ""),
	}
}

// New builds the configured backend, wrapped in the badger cache when
// CacheDir is set. The returned close func releases the cache.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Embedder, func() error, error) {
	var (
		base Embedder
		err  error
	)
	switch cfg.Backend {
	case BackendOpenAI:
		base, err = NewOpenAIFromConfig(ctx, cfg)
	case "", BackendHashing:
		base = NewHashing(cfg.HashingDims)
	default:
		err = fmt.Errorf("unknown EMBED_BACKEND %q", cfg.Backend)
	}
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(cfg.CacheDir) == "" {
		return base, func() error { return nil }, nil
	}
	cached, err := NewCached(base, cfg.CacheDir, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("embedding cache enabled", "dir", cfg.CacheDir, "backend", base.Name())
	return cached, cached.Close, nil
}
