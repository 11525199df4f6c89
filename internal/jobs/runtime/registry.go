package runtime

import (
	"fmt"
	"sync"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
)

type Handler interface {
	Type() cascade.JobKind
	Run(ctx *Context) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[cascade.JobKind]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[cascade.JobKind]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job kind=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(kind cascade.JobKind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}
