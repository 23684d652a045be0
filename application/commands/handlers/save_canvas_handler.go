package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
)

// SaveCanvasHandler handles full canvas replacement
type SaveCanvasHandler struct {
	canvasRepo ports.CanvasRepository
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewSaveCanvasHandler creates a new save canvas handler
func NewSaveCanvasHandler(canvasRepo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *SaveCanvasHandler {
	return &SaveCanvasHandler{
		canvasRepo: canvasRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Handle replaces the canvas contents wholesale and returns the saved
// aggregate. The replacement is validated against the aggregate's
// invariants before anything is persisted.
func (h *SaveCanvasHandler) Handle(ctx context.Context, cmd commands.SaveCanvasCommand) (*aggregates.Canvas, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	saved, err := saveWithRetry(ctx, h.canvasRepo, cmd.ProjectID, h.logger, func(canvas *aggregates.Canvas) error {
		viewport := canvas.Viewport()
		if cmd.Viewport != nil {
			viewport = *cmd.Viewport
		}
		return canvas.ReplaceContents(cmd.Nodes, cmd.Edges, cmd.Sections, viewport)
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, saved, h.logger)

	h.logger.Info("canvas saved",
		zap.String("projectID", cmd.ProjectID),
		zap.Int("nodes", len(cmd.Nodes)),
		zap.Int("edges", len(cmd.Edges)),
		zap.Int("version", saved.Version()),
	)

	return saved, nil
}
