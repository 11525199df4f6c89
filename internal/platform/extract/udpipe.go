package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

const maxErrorBodyBytes = 2048

// UDPipe calls a UDPipe REST server (POST /process) and derives triples from
// the returned dependency parse.
type UDPipe struct {
	baseURL string
	models  map[nlp.Lang]string
	http    *http.Client
	log     *logger.Logger
}

type udpipeResponse struct {
	Model  string `json:"model"`
	Result string `json:"result"`
}

func NewUDPipe(cfg Config, log *logger.Logger) (*UDPipe, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.UDPipeURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid UDPIPE_URL=%q; expected absolute URL like http://udpipe:8080", cfg.UDPipeURL)
	}
	timeout := cfg.UDPipeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UDPipe{
		baseURL: base,
		models:  cfg.UDPipeModels,
		http:    &http.Client{Timeout: timeout},
		log:     log.With("component", "UDPipeExtractor"),
	}, nil
}

func (u *UDPipe) Extract(ctx context.Context, text string, lang nlp.Lang) ([]glossary.Triple, error) {
	const op = "extract.udpipe"
	model, ok := u.models[lang]
	if !ok || model == "" {
		return nil, failure(op, fmt.Errorf("%w: %q", nlp.ErrUnsupportedLanguage, lang))
	}
	if strings.TrimSpace(text) == "" {
		return []glossary.Triple{}, nil
	}

	form := url.Values{}
	form.Set("data", text)
	form.Set("model", model)
	form.Set("tokenizer", "")
	form.Set("tagger", "")
	form.Set("parser", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/process", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, failure(op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := u.http.Do(req)
	if err != nil {
		return nil, failure(op, fmt.Errorf("udpipe request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure(op, fmt.Errorf("read udpipe response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := raw
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, failure(op, fmt.Errorf("udpipe http status=%d body=%q", resp.StatusCode, body))
	}

	var out udpipeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, failure(op, fmt.Errorf("decode udpipe response: %w", err))
	}
	sentences, err := ParseCoNLLU(out.Result)
	if err != nil {
		return nil, failure(op, err)
	}
	triples := Triples(sentences)
	u.log.Debug("udpipe parse done",
		"model", model,
		"sentences", len(sentences),
		"triples", len(triples),
		"elapsed", time.Since(start).String(),
	)
	return triples, nil
}
