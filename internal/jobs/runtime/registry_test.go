package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type stubHandler struct{ kind cascade.JobKind }

func (s stubHandler) Type() cascade.JobKind { return s.kind }
func (s stubHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatalf("nil handler should be rejected")
	}
	if err := r.Register(stubHandler{}); err == nil {
		t.Fatalf("empty type should be rejected")
	}
	if err := r.Register(stubHandler{kind: cascade.GraphRebuild}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(stubHandler{kind: cascade.GraphRebuild}); err == nil {
		t.Fatalf("duplicate type should be rejected")
	}
	if _, ok := r.Get(cascade.GraphRebuild); !ok {
		t.Fatalf("Get: registered handler missing")
	}
	if _, ok := r.Get(cascade.EmbeddingCompute); ok {
		t.Fatalf("Get: unexpected handler")
	}
}

func TestContextFailOnce(t *testing.T) {
	jc := NewContext(context.Background(), cascade.Job{Kind: cascade.EmbeddingCompute, DescriptionID: uuid.New()}, logger.NewNop(), time.Time{})
	first := errors.New("first")
	jc.Fail("embed", first)
	jc.Fail("persist", errors.New("second"))
	if !jc.Failed() || !errors.Is(jc.Err(), first) {
		t.Fatalf("Fail: want first error recorded got=%v", jc.Err())
	}
}
