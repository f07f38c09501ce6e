package rental

import (
	"context"
	"errors"
	"fmt"

	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TelemetrySink receives one record per successful status change
type TelemetrySink interface {
	RecordTransition(ctx context.Context, record rental.TransitionRecord) error
}

// TransitionTelemetryHandler forwards status changes to telemetry sinks.
// Sink failures are logged and swallowed.
type TransitionTelemetryHandler struct {
	sinks  []TelemetrySink
	logger *zap.Logger
}

// NewTransitionTelemetryHandler creates a new TransitionTelemetryHandler
func NewTransitionTelemetryHandler(logger *zap.Logger, sinks ...TelemetrySink) *TransitionTelemetryHandler {
	return &TransitionTelemetryHandler{
		sinks:  sinks,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *TransitionTelemetryHandler) EventTypes() []string {
	return []string{rental.EventTypeApplicationStatusChanged}
}

// Handle records the transition in every sink
func (h *TransitionTelemetryHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*rental.ApplicationStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			rental.EventTypeApplicationStatusChanged, event.EventType())
	}

	record := changed.Record()
	var errs []error
	for _, sink := range h.sinks {
		if err := sink.RecordTransition(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		h.logger.Warn("telemetry sink unavailable",
			zap.String("application_id", changed.ApplicationID.String()),
			zap.Error(err),
		)
	}
	return nil
}
