package handlers

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
)

// CreateNodeHandler handles node creation commands
type CreateNodeHandler struct {
	canvasRepo ports.CanvasRepository
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewCreateNodeHandler creates a new create node handler
func NewCreateNodeHandler(canvasRepo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *CreateNodeHandler {
	return &CreateNodeHandler{
		canvasRepo: canvasRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Handle executes the create node command and returns the created node.
func (h *CreateNodeHandler) Handle(ctx context.Context, cmd commands.CreateNodeCommand) (*entities.CanvasNode, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	node := cmd.Node
	if node.ID == "" {
		node.ID = uuid.New().String()
	}
	if node.Type == "" {
		node.Type = "note"
	}
	if node.ViewType == "" {
		node.ViewType = entities.ViewTypeFree
	}

	saved, err := saveWithRetry(ctx, h.canvasRepo, cmd.ProjectID, h.logger, func(canvas *aggregates.Canvas) error {
		if canvas.HasNode(node.ID) {
			// A concurrent writer already created this node.
			return errAlreadyApplied
		}
		fresh := node
		return canvas.AddNode(&fresh)
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, saved, h.logger)

	h.logger.Info("node created",
		zap.String("projectID", cmd.ProjectID),
		zap.String("nodeID", node.ID),
		zap.Int("version", saved.Version()),
	)

	created, err := saved.FindNode(node.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}
