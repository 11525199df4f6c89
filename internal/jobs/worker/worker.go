package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/termbase-backend/internal/jobs/runtime"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/termbase-backend/internal/platform/envutil"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type Config struct {
	Concurrency int
	QueueSize   int
	JobTimeout  time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Concurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		QueueSize:   envutil.Int("WORKER_QUEUE_SIZE", 1024),
		JobTimeout:  envutil.Duration("WORKER_JOB_TIMEOUT", 2*time.Minute),
	}
}

type queued struct {
	job        cascade.Job
	trace      *ctxutil.TraceData
	link       trace.Link
	enqueuedAt time.Time
}

// Stats are cumulative counters since the pool was created.
type Stats struct {
	Enqueued  int64
	Dropped   int64
	Succeeded int64
	Failed    int64
}

// Observer receives job outcomes; *observability.Metrics implements it.
type Observer interface {
	ObserveJob(kind, status string, dur time.Duration)
	IncJobDropped(kind string)
}

// Pool runs cascade jobs on a fixed set of goroutines fed by a bounded queue.
// Enqueue never blocks; a full queue drops the job.
type Pool struct {
	log      *logger.Logger
	registry *runtime.Registry
	cfg      Config
	queue    chan queued
	tracer   trace.Tracer
	observer Observer

	startOnce sync.Once
	wg        sync.WaitGroup

	enqueued  atomic.Int64
	dropped   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

func NewPool(baseLog *logger.Logger, registry *runtime.Registry, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Pool{
		log:      baseLog.With("component", "JobWorker"),
		registry: registry,
		cfg:      cfg,
		queue:    make(chan queued, cfg.QueueSize),
		tracer:   otel.Tracer("termbase/jobs"),
	}
}

// WithObserver attaches o to the pool; call before Start.
func (p *Pool) WithObserver(o Observer) *Pool {
	p.observer = o
	return p
}

// Enqueue schedules job and reports whether it was accepted. The request's
// trace data travels with the job.
func (p *Pool) Enqueue(ctx context.Context, job cascade.Job) bool {
	q := queued{
		job:        job,
		trace:      ctxutil.GetTraceData(ctx),
		enqueuedAt: time.Now(),
	}
	if ctx != nil {
		q.link = trace.LinkFromContext(ctx)
	}
	select {
	case p.queue <- q:
		p.enqueued.Add(1)
		return true
	default:
		p.dropped.Add(1)
		if p.observer != nil {
			p.observer.IncJobDropped(string(job.Kind))
		}
		p.log.Warn("Job queue full; dropping job",
			"job_kind", string(job.Kind),
			"description_id", job.DescriptionID.String(),
			"queue_size", p.cfg.QueueSize,
		)
		return false
	}
}

// Start launches the workers. They exit when ctx is canceled; a job already
// running finishes under its own deadline.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.log.Info("Starting job worker pool", "concurrency", p.cfg.Concurrency, "queue_size", p.cfg.QueueSize)
		for i := 0; i < p.cfg.Concurrency; i++ {
			workerID := i + 1
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.runLoop(ctx, workerID)
			}()
		}
	})
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) Stats() Stats {
	return Stats{
		Enqueued:  p.enqueued.Load(),
		Dropped:   p.dropped.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case q := <-p.queue:
			p.runOne(ctx, workerID, q)
		}
	}
}

// RunNow executes job synchronously on the caller's goroutine and reports
// whether it succeeded.
func (p *Pool) RunNow(ctx context.Context, job cascade.Job) bool {
	return p.runOne(ctx, 0, queued{job: job, trace: ctxutil.GetTraceData(ctx), enqueuedAt: time.Now()})
}

func (p *Pool) runOne(parent context.Context, workerID int, q queued) bool {
	base := context.WithoutCancel(parent)
	if q.trace != nil {
		base = ctxutil.WithTraceData(base, q.trace)
	}
	jobCtx, cancel := context.WithTimeout(base, p.cfg.JobTimeout)
	defer cancel()

	var opts []trace.SpanStartOption
	if q.link.SpanContext.IsValid() {
		opts = append(opts, trace.WithLinks(q.link))
	}
	jobCtx, span := p.tracer.Start(jobCtx, "job."+string(q.job.Kind), opts...)
	span.SetAttributes(
		attribute.String("job.kind", string(q.job.Kind)),
		attribute.String("job.description_id", q.job.DescriptionID.String()),
		attribute.Bool("job.create", q.job.Create),
	)
	defer span.End()

	jc := runtime.NewContext(jobCtx, q.job, p.log, q.enqueuedAt)
	started := time.Now()

	h, ok := p.registry.Get(q.job.Kind)
	if !ok {
		jc.Fail("dispatch", &missingHandlerError{Kind: q.job.Kind})
	} else {
		func() {
			defer func() {
				if r := recover(); r != nil {
					jc.Log.Error("Job handler panic", "worker_id", workerID, "panic", r)
					jc.Fail("panic", errFromRecover(r))
				}
			}()
			if runErr := h.Run(jc); runErr != nil {
				// Handlers usually call jc.Fail themselves; this is a safety net.
				jc.Fail("run", runErr)
			}
		}()
	}

	if p.observer != nil {
		status := "succeeded"
		if jc.Failed() {
			status = "failed"
		}
		p.observer.ObserveJob(string(q.job.Kind), status, time.Since(started))
	}
	if jc.Failed() {
		p.failed.Add(1)
		span.RecordError(jc.Err())
		span.SetStatus(codes.Error, "job failed")
		return false
	}
	p.succeeded.Add(1)
	jc.Log.Debug("Job done", "worker_id", workerID, "elapsed", time.Since(q.enqueuedAt).String())
	return true
}

type missingHandlerError struct{ Kind cascade.JobKind }

func (e *missingHandlerError) Error() string {
	return "no handler registered for job kind=" + string(e.Kind)
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
