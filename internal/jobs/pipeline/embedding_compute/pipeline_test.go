package embedding_compute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/termbase-backend/internal/jobs/runtime"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type fakeComputer struct {
	err   error
	calls int
}

func (f *fakeComputer) ComputeEmbedding(context.Context, cascade.Job) error {
	f.calls++
	return f.err
}

func TestRunValidatesAndDelegates(t *testing.T) {
	log := logger.NewNop()
	fc := &fakeComputer{}
	p := New(fc)

	base := cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: uuid.New(), Lang: "english"}

	jc := jobrt.NewContext(context.Background(), base, log, time.Now())
	_ = p.Run(jc)
	if !jc.Failed() || fc.calls != 0 {
		t.Fatalf("empty text must fail before embedding: failed=%v calls=%d", jc.Failed(), fc.calls)
	}

	withText := base
	withText.Text = "network learn"
	jc = jobrt.NewContext(context.Background(), withText, log, time.Now())
	_ = p.Run(jc)
	if jc.Failed() || fc.calls != 1 {
		t.Fatalf("run: failed=%v calls=%d", jc.Failed(), fc.calls)
	}

	fc.err = errors.New("no vector")
	jc = jobrt.NewContext(context.Background(), withText, log, time.Now())
	_ = p.Run(jc)
	if !errors.Is(jc.Err(), fc.err) {
		t.Fatalf("expected failure to be recorded, got %v", jc.Err())
	}
}
