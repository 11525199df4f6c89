package embedding_compute

import (
	"fmt"
	"strings"

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
	if strings.TrimSpace(jc.Job.Text) == "" {
		jc.Fail("validate", fmt.Errorf("empty stemmed text"))
		return nil
	}
	if err := p.computer.ComputeEmbedding(jc.Ctx, jc.Job); err != nil {
		jc.Fail("embed", err)
		return nil
	}
	jc.Log.Debug("embedding compute done", "create", jc.Job.Create)
	return nil
}
