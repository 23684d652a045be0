package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// UpdateNodeHandler handles partial node edits
type UpdateNodeHandler struct {
	canvasRepo ports.CanvasRepository
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewUpdateNodeHandler creates a new update node handler
func NewUpdateNodeHandler(canvasRepo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *UpdateNodeHandler {
	return &UpdateNodeHandler{
		canvasRepo: canvasRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Handle executes the update node command and returns the updated node.
func (h *UpdateNodeHandler) Handle(ctx context.Context, cmd commands.UpdateNodeCommand) (*entities.CanvasNode, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	saved, err := saveWithRetry(ctx, h.canvasRepo, cmd.ProjectID, h.logger, func(canvas *aggregates.Canvas) error {
		if canvas.Version() == 0 {
			// Nothing persisted for this project yet, so the node
			// cannot exist; don't save an empty canvas as a side effect.
			return apperrors.NewNotFoundError("node \"" + cmd.NodeID + "\"")
		}
		return canvas.UpdateNode(cmd.NodeID, cmd.Update)
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, saved, h.logger)

	h.logger.Info("node updated",
		zap.String("projectID", cmd.ProjectID),
		zap.String("nodeID", cmd.NodeID),
		zap.Int("version", saved.Version()),
	)

	return saved.FindNode(cmd.NodeID)
}
