// Package cascade decides which derived artifacts a description change makes
// stale. It is pure; dispatch lives in the coordinator service.
package cascade

import (
	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
)

type Event string

const (
	Created                    Event = "created"
	RawTextChanged             Event = "raw_text_changed"
	CleanedTextChangedDirectly Event = "cleaned_text_changed_directly"
	StemmedTextChangedDirectly Event = "stemmed_text_changed_directly"
)

type JobKind string

const (
	GraphRebuild     JobKind = "graph_rebuild"
	EmbeddingCompute JobKind = "embedding_compute"
)

// Job is one unit of derived-artifact work. Create selects create-if-absent
// semantics for the target row; otherwise a missing row aborts the job.
type Job struct {
	Kind          JobKind   `json:"kind"`
	DescriptionID uuid.UUID `json:"description_id"`
	Text          string    `json:"text"`
	Lang          string    `json:"lang"`
	Create        bool      `json:"create"`
}

// Plan maps a description event to the jobs it requires. The graph is
// extracted from raw text, the embedding from stemmed text.
func Plan(ev Event, descriptionID uuid.UUID, lang string, ch textidentity.Change) []Job {
	graph := Job{Kind: GraphRebuild, DescriptionID: descriptionID, Text: ch.Next.Raw, Lang: lang}
	embed := Job{Kind: EmbeddingCompute, DescriptionID: descriptionID, Text: ch.Next.Stemmed, Lang: lang}

	switch ev {
	case Created:
		graph.Create, embed.Create = true, true
		return []Job{graph, embed}
	case RawTextChanged:
		if !ch.Raw {
			return nil
		}
		out := []Job{graph}
		if ch.Stemmed {
			out = append(out, embed)
		}
		return out
	case CleanedTextChangedDirectly:
		if ch.Stemmed {
			return []Job{embed}
		}
		return nil
	case StemmedTextChangedDirectly:
		return []Job{embed}
	default:
		return nil
	}
}
