package runtime

import (
	"context"
	"time"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

/*
Context is the execution handle for one job run.
  - Ctx carries the job deadline and the trace data of the request that
    enqueued the job.
  - Job is the immutable job value.
  - Log is scoped to the job kind and description.
Jobs are never retried: a handler reports a terminal failure through Fail
and returns.
*/
type Context struct {
	Ctx        context.Context
	Job        cascade.Job
	Log        *logger.Logger
	EnqueuedAt time.Time

	failed  bool
	failErr error
}

func NewContext(ctx context.Context, job cascade.Job, baseLog *logger.Logger, enqueuedAt time.Time) *Context {
	kv := []interface{}{"job_kind", string(job.Kind), "description_id", job.DescriptionID.String()}
	kv = append(kv, ctxutil.LogFields(ctx)...)
	return &Context{
		Ctx:        ctx,
		Job:        job,
		Log:        baseLog.With(kv...),
		EnqueuedAt: enqueuedAt,
	}
}

// Fail logs a terminal failure for the run. Only the first call is recorded.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.failed {
		return
	}
	c.failed = true
	c.failErr = err
	c.Log.Error("job failed",
		"stage", stage,
		"error", err,
		"waited", c.waited().String(),
	)
}

func (c *Context) Failed() bool { return c != nil && c.failed }

func (c *Context) Err() error {
	if c == nil {
		return nil
	}
	return c.failErr
}

func (c *Context) waited() time.Duration {
	if c.EnqueuedAt.IsZero() {
		return 0
	}
	return time.Since(c.EnqueuedAt)
}
