package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/jobs/runtime"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type funcHandler struct {
	kind cascade.JobKind
	fn   func(*runtime.Context) error
}

func (h funcHandler) Type() cascade.JobKind { return h.kind }
func (h funcHandler) Run(jc *runtime.Context) error { return h.fn(jc) }

func newRegistry(t *testing.T, hs ...runtime.Handler) *runtime.Registry {
	t.Helper()
	r := runtime.NewRegistry()
	for _, h := range hs {
		if err := r.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestPoolRunsJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []uuid.UUID
	)
	h := funcHandler{kind: cascade.GraphRebuild, fn: func(jc *runtime.Context) error {
		mu.Lock()
		seen = append(seen, jc.Job.DescriptionID)
		mu.Unlock()
		return nil
	}}
	p := NewPool(logger.NewNop(), newRegistry(t, h), Config{Concurrency: 2, QueueSize: 8})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	for i := 0; i < 5; i++ {
		if !p.Enqueue(context.Background(), cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: uuid.New()}) {
			t.Fatalf("Enqueue rejected job %d", i)
		}
	}
	waitFor(t, func() bool { return p.Stats().Succeeded == 5 })
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 5 {
		t.Fatalf("handled: want=5 got=%d", len(seen))
	}
}

func TestPoolFailuresAreTerminal(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	failing := funcHandler{kind: cascade.EmbeddingCompute, fn: func(jc *runtime.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("embedding backend down")
	}}
	panicking := funcHandler{kind: cascade.GraphRebuild, fn: func(*runtime.Context) error {
		panic("boom")
	}}
	p := NewPool(logger.NewNop(), newRegistry(t, failing, panicking), Config{Concurrency: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Enqueue(context.Background(), cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: uuid.New()})
	p.Enqueue(context.Background(), cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: uuid.New()})
	p.Enqueue(context.Background(), cascade.Job{Kind: cascade.JobKind("unknown"), DescriptionID: uuid.New()})

	waitFor(t, func() bool { return p.Stats().Failed == 3 })
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("failed job retried: calls=%d", calls)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	p := NewPool(logger.NewNop(), runtime.NewRegistry(), Config{Concurrency: 1, QueueSize: 1})
	job := cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: uuid.New()}

	if !p.Enqueue(context.Background(), job) {
		t.Fatalf("first Enqueue should fit")
	}
	if p.Enqueue(context.Background(), job) {
		t.Fatalf("second Enqueue should be dropped")
	}
	if got := p.Stats(); got.Enqueued != 1 || got.Dropped != 1 {
		t.Fatalf("stats: got=%+v", got)
	}
}

func TestJobOutlivesRequestContext(t *testing.T) {
	got := make(chan error, 1)
	var traceID string
	h := funcHandler{kind: cascade.GraphRebuild, fn: func(jc *runtime.Context) error {
		if td := ctxutil.GetTraceData(jc.Ctx); td != nil {
			traceID = td.TraceID
		}
		got <- jc.Ctx.Err()
		return nil
	}}
	p := NewPool(logger.NewNop(), newRegistry(t, h), Config{Concurrency: 1, QueueSize: 1})

	reqCtx, cancelReq := context.WithCancel(ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1"}))
	p.Enqueue(reqCtx, cascade.Job{Kind: cascade.GraphRebuild, DescriptionID: uuid.New()})
	cancelReq()

	poolCtx, cancelPool := context.WithCancel(context.Background())
	p.Start(poolCtx)
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("job ctx canceled with request: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run")
	}
	if traceID != "t-1" {
		t.Fatalf("trace id: want=t-1 got=%q", traceID)
	}
	cancelPool()
	p.Wait()
}

func TestRunNow(t *testing.T) {
	h := funcHandler{kind: cascade.EmbeddingCompute, fn: func(jc *runtime.Context) error {
		jc.Fail("embed", errors.New("nil vector"))
		return nil
	}}
	p := NewPool(logger.NewNop(), newRegistry(t, h), Config{})
	if p.RunNow(context.Background(), cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: uuid.New()}) {
		t.Fatalf("RunNow: want failure")
	}
	if p.Stats().Failed != 1 {
		t.Fatalf("failed counter: got=%d", p.Stats().Failed)
	}
}
