// Package extract turns description text into subject-predicate-object
// triples.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/envutil"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

type Extractor interface {
	Extract(ctx context.Context, text string, lang nlp.Lang) ([]glossary.Triple, error)
}

const (
	BackendUDPipe = "udpipe"
	BackendLLM    = "llm"
	BackendNone   = "none"
)

type Config struct {
	Backend string

	UDPipeURL     string
	UDPipeModels  map[nlp.Lang]string
	UDPipeTimeout time.Duration

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
}

func ConfigFromEnv() Config {
	return Config{
		Backend:   strings.ToLower(envutil.String("EXTRACT_BACKEND", BackendUDPipe)),
		UDPipeURL: envutil.String("UDPIPE_URL", "http://localhost:8080"),
		UDPipeModels: map[nlp.Lang]string{
			nlp.English: envutil.String("UDPIPE_MODEL_EN", "english-ewt"),
			nlp.Russian: envutil.String("UDPIPE_MODEL_RU", "russian-syntagrus"),
		},
		UDPipeTimeout: envutil.Duration("UDPIPE_TIMEOUT", 30*time.Second),
		LLMAPIKey:     envutil.String("OPENAI_API_KEY", ""),
		LLMBaseURL:    envutil.String("OPENAI_BASE_URL", ""),
		LLMModel:      envutil.String("EXTRACT_LLM_MODEL", "gpt-4o-mini"),
	}
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Extractor, error) {
	switch cfg.Backend {
	case "", BackendUDPipe:
		return NewUDPipe(cfg, log)
	case BackendLLM:
		return NewLLMFromConfig(ctx, cfg, log)
	case BackendNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown EXTRACT_BACKEND %q", cfg.Backend)
	}
}

// None extracts nothing; every description gets an empty graph.
type None struct{}

func (None) Extract(context.Context, string, nlp.Lang) ([]glossary.Triple, error) {
	return []glossary.Triple{}, nil
}

func failure(op string, err error) error {
	return glossary.Wrap(glossary.CodeExtractionFailure, op, err)
}
