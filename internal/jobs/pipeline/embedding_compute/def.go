package embedding_compute

import (
	"context"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
)

type Computer interface {
	ComputeEmbedding(ctx context.Context, job cascade.Job) error
}

type Pipeline struct {
	computer Computer
}

func New(computer Computer) *Pipeline {
	return &Pipeline{computer: computer}
}

func (p *Pipeline) Type() cascade.JobKind { return cascade.EmbeddingCompute }
