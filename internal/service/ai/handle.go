package ai

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/eino/components/model"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/config"
)

// Handle guards one-time construction of the shared chat model. The model is
// expensive to build and safe for concurrent use afterwards, so Get uses a
// double-checked scheme: a lock-free atomic load on the common path, the
// mutex only while constructing. A failed construction leaves the handle
// unset; a later call retries after the configuration has been fixed.
type Handle struct {
	build func(ctx context.Context) (model.ChatModel, error)

	mu    sync.Mutex
	model atomic.Pointer[model.ChatModel]
}

// NewHandle returns an empty handle that builds the model from cfg on first use.
func NewHandle(cfg config.AIConfig) *Handle {
	return &Handle{build: cfg.NewChatModel}
}

// Get returns the shared chat model, constructing it on the first call.
// Exactly one construction happens even under concurrent first use.
func (h *Handle) Get(ctx context.Context) (model.ChatModel, error) {
	if m := h.model.Load(); m != nil {
		return *m, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if m := h.model.Load(); m != nil {
		return *m, nil
	}

	m, err := h.build(ctx)
	if err != nil {
		log.Printf("[ai] failed to load chat model: %v", err)
		return nil, err
	}

	h.model.Store(&m)
	log.Println("[ai] chat model loaded successfully")
	return m, nil
}
