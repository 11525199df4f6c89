package graph_rebuild

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/termbase-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	if jc.Job.DescriptionID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing description_id"))
		return nil
	}
	if err := p.rebuilder.RebuildGraph(jc.Ctx, jc.Job); err != nil {
		jc.Fail("rebuild", err)
		return nil
	}
	jc.Log.Debug("graph rebuild done", "create", jc.Job.Create)
	return nil
}
