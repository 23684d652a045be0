package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
)

// DeleteNodeHandler handles node deletion commands
type DeleteNodeHandler struct {
	canvasRepo ports.CanvasRepository
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewDeleteNodeHandler creates a new delete node handler
func NewDeleteNodeHandler(canvasRepo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *DeleteNodeHandler {
	return &DeleteNodeHandler{
		canvasRepo: canvasRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Handle executes the delete node command. Deleting a node that a concurrent
// writer already removed is an idempotent no-op.
func (h *DeleteNodeHandler) Handle(ctx context.Context, cmd commands.DeleteNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	saved, err := saveWithRetry(ctx, h.canvasRepo, cmd.ProjectID, h.logger, func(canvas *aggregates.Canvas) error {
		if !canvas.HasNode(cmd.NodeID) {
			return errAlreadyApplied
		}
		return canvas.RemoveNode(cmd.NodeID)
	})
	if err != nil {
		return err
	}

	publishEvents(ctx, h.publisher, saved, h.logger)

	h.logger.Info("node deleted",
		zap.String("projectID", cmd.ProjectID),
		zap.String("nodeID", cmd.NodeID),
		zap.Int("version", saved.Version()),
	)

	return nil
}
