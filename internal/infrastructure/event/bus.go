package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rentals/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultAsyncTimeout bounds a detached asynchronous delivery
const DefaultAsyncTimeout = 5 * time.Second

// InMemoryEventBus implements EventBus with in-process pub/sub
type InMemoryEventBus struct {
	registry     *HandlerRegistry
	logger       *zap.Logger
	asyncTimeout time.Duration

	// mu orders the stopped check and wg.Add in PublishAsync against Stop,
	// so no Add can start once Stop is waiting.
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncTimeout sets the deadline applied to each PublishAsync delivery
func WithAsyncTimeout(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		if d > 0 {
			b.asyncTimeout = d
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:     NewHandlerRegistry(),
		logger:       logger,
		asyncTimeout: DefaultAsyncTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to every matching handler in order.
// Handler errors are logged and do not stop delivery.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// PublishAsync delivers events on a background goroutine. The delivery context
// keeps ctx values but not its cancellation, so it outlives the request.
func (b *InMemoryEventBus) PublishAsync(ctx context.Context, events ...shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		b.logger.Warn("event bus stopped, dropping events", zap.Int("count", len(events)))
		return
	}
	b.wg.Add(1)
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer b.wg.Done()
		deliverCtx, cancel := context.WithTimeout(detached, b.asyncTimeout)
		defer cancel()
		_ = b.Publish(deliverCtx, events...)
	}()
}

// Subscribe registers a handler. Without explicit types the handler's own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus as accepting events
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = false
	b.mu.Unlock()
	b.logger.Info("event bus started")
	return nil
}

// Stop rejects new asynchronous deliveries and waits for in-flight ones
// until ctx is done.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
