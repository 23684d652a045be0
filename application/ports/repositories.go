package ports

import (
	"context"

	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/events"
)

// CanvasRepository is the persistence port for canvas aggregates.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation.
type CanvasRepository interface {
	// FindByProject retrieves the canvas for a project, or nil (without
	// error) when no canvas has been persisted yet.
	FindByProject(ctx context.Context, projectID string) (*aggregates.Canvas, error)

	// SaveWithVersion atomically persists the canvas iff the stored version
	// equals expectedVersion. On success it returns the canvas with its
	// version advanced by one and its timestamp refreshed; on mismatch it
	// returns a ConflictError and leaves the stored state untouched. The
	// guard must be a single storage-level conditional write, never a
	// read-then-write.
	SaveWithVersion(ctx context.Context, canvas *aggregates.Canvas, expectedVersion int) (*aggregates.Canvas, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
