package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
)

// publishEvents drains the aggregate's uncommitted events to the publisher.
// Publishing is best-effort: a failed publish is logged and never fails the
// use case that produced the events.
func publishEvents(ctx context.Context, publisher ports.EventPublisher, canvas *aggregates.Canvas, logger *zap.Logger) {
	if publisher == nil {
		return
	}
	pending := canvas.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	if err := publisher.PublishBatch(ctx, pending); err != nil {
		logger.Warn("failed to publish canvas events",
			zap.String("projectID", canvas.ProjectID()),
			zap.Int("count", len(pending)),
			zap.Error(err),
		)
	}
	canvas.MarkEventsAsCommitted()
}
