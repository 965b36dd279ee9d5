package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler reacts to a published event
type Handler func(ctx context.Context, event Event) error

type namedHandler struct {
	name    string
	handler Handler
}

// Registry maps event kinds to ordered handler lists.
// Handlers run synchronously in registration order. Their errors and panics are
// logged and never reach the publisher.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind][]namedHandler
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[Kind][]namedHandler),
		logger:   logger,
	}
}

// Subscribe appends handler to the list for kind
func (r *Registry) Subscribe(kind Kind, name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], namedHandler{name: name, handler: handler})
}

// On subscribes a handler typed on the concrete payload
func On[T Event](r *Registry, name string, handler func(ctx context.Context, event T) error) {
	var zero T
	r.Subscribe(zero.Kind(), name, func(ctx context.Context, event Event) error {
		typed, ok := event.(T)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event, zero.Kind())
		}
		return handler(ctx, typed)
	})
}

// HandlerCount returns how many handlers are registered for kind
func (r *Registry) HandlerCount(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[kind])
}

// Publish delivers event to every handler registered for its kind
func (r *Registry) Publish(ctx context.Context, event Event) {
	r.mu.RLock()
	handlers := r.handlers[event.Kind()]
	r.mu.RUnlock()

	for _, h := range handlers {
		if err := r.invoke(ctx, h, event); err != nil {
			r.logger.Warn("Event handler failed",
				zap.String("kind", string(event.Kind())),
				zap.String("handler", h.name),
				zap.Error(err))
		}
	}
}

func (r *Registry) invoke(ctx context.Context, h namedHandler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h.handler(ctx, event)
}
