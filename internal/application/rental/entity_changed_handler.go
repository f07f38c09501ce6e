package rental

import (
	"context"
	"fmt"

	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ChangePublisher notifies read-path caches that entities changed
type ChangePublisher interface {
	PublishEntityChange(ctx context.Context, entities []rental.ChangedEntity) error
}

// EntityChangedHandler turns settlement events into cache invalidation notices
type EntityChangedHandler struct {
	publisher ChangePublisher
	logger    *zap.Logger
}

// NewEntityChangedHandler creates a new EntityChangedHandler
func NewEntityChangedHandler(publisher ChangePublisher, logger *zap.Logger) *EntityChangedHandler {
	return &EntityChangedHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *EntityChangedHandler) EventTypes() []string {
	return []string{
		rental.EventTypeApplicationStatusChanged,
		rental.EventTypeReferralSettled,
	}
}

type changeSource interface {
	ChangedEntities() []rental.ChangedEntity
}

// Handle publishes the entities touched by the event
func (h *EntityChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	src, ok := event.(changeSource)
	if !ok {
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	entities := src.ChangedEntities()
	if err := h.publisher.PublishEntityChange(ctx, entities); err != nil {
		h.logger.Warn("failed to publish entity change",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish entity change: %w", err)
	}
	h.logger.Debug("entity change published",
		zap.String("event_type", event.EventType()),
		zap.Int("entities", len(entities)),
	)
	return nil
}
