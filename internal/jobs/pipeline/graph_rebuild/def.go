package graph_rebuild

import (
	"context"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
)

type Rebuilder interface {
	RebuildGraph(ctx context.Context, job cascade.Job) error
}

type Pipeline struct {
	rebuilder Rebuilder
}

func New(rebuilder Rebuilder) *Pipeline {
	return &Pipeline{rebuilder: rebuilder}
}

func (p *Pipeline) Type() cascade.JobKind { return cascade.GraphRebuild }
