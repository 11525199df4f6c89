package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
)

const llmSystemPrompt = `You extract relation triples from a single definition text.
Return only a JSON array. Each element has the keys:
"subject", "subject_type", "predicate", "predicate_type", "object", "object_type".
Use the exact surface form of subjects and objects, the lemma of the predicate verb,
and Universal Dependencies part-of-speech tags (NOUN, PROPN, VERB, ADJ, ...) for the types.
Use null for an unknown type. Return [] when the text has no relation.`

// LLM asks a chat model for triples in a JSON array.
type LLM struct {
	chat model.BaseChatModel
	log  *logger.Logger
}

func NewLLM(chat model.BaseChatModel, log *logger.Logger) *LLM {
	return &LLM{chat: chat, log: log.With("component", "LLMExtractor")}
}

func NewLLMFromConfig(ctx context.Context, cfg Config, log *logger.Logger) (*LLM, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for EXTRACT_BACKEND=llm")
	}
	cm, err := openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return NewLLM(cm, log), nil
}

type llmTriple struct {
	Subject       string  `json:"subject"`
	SubjectType   *string `json:"subject_type"`
	Predicate     string  `json:"predicate"`
	PredicateType *string `json:"predicate_type"`
	Object        string  `json:"object"`
	ObjectType    *string `json:"object_type"`
}

func (l *LLM) Extract(ctx context.Context, text string, lang nlp.Lang) ([]glossary.Triple, error) {
	const op = "extract.llm"
	if !lang.Supported() {
		return nil, failure(op, fmt.Errorf("%w: %q", nlp.ErrUnsupportedLanguage, lang))
	}
	if strings.TrimSpace(text) == "" {
		return []glossary.Triple{}, nil
	}
	msg, err := l.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(llmSystemPrompt),
		schema.UserMessage(fmt.Sprintf("Language: %s\nText: %s", lang, text)),
	})
	if err != nil {
		return nil, failure(op, err)
	}
	if msg == nil {
		return nil, failure(op, fmt.Errorf("empty model response"))
	}
	triples, err := ParseLLMTriples(msg.Content)
	if err != nil {
		l.log.Warn("unparseable model output", "error", err, "content_text", msg.Content)
		return nil, failure(op, err)
	}
	return triples, nil
}

// ParseLLMTriples decodes a JSON array of triples, tolerating a fenced code
// block around it. Incomplete triples are dropped. Position counts
// subjects in order of first appearance.
func ParseLLMTriples(content string) ([]glossary.Triple, error) {
	body := strings.TrimSpace(content)
	if i := strings.Index(body, "["); i >= 0 {
		if j := strings.LastIndex(body, "]"); j > i {
			body = body[i : j+1]
		}
	}
	var raw []llmTriple
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode triples: %w", err)
	}
	out := make([]glossary.Triple, 0, len(raw))
	positions := map[string]int{}
	for _, t := range raw {
		subj, pred, obj := strings.TrimSpace(t.Subject), strings.TrimSpace(t.Predicate), strings.TrimSpace(t.Object)
		if subj == "" || pred == "" || obj == "" {
			continue
		}
		pos, ok := positions[subj]
		if !ok {
			pos = len(positions)
			positions[subj] = pos
		}
		out = append(out, glossary.Triple{
			Position:      pos,
			Subject:       subj,
			SubjectType:   blankNil(t.SubjectType),
			Predicate:     pred,
			PredicateType: blankNil(t.PredicateType),
			Object:        obj,
			ObjectType:    blankNil(t.ObjectType),
		})
	}
	return out, nil
}

func blankNil(v *string) *string {
	if v == nil {
		return nil
	}
	return glossary.StrPtr(strings.TrimSpace(*v))
}
