package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/application/queries"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
)

// GetCanvasHandler handles canvas read queries
type GetCanvasHandler struct {
	canvasRepo ports.CanvasRepository
	logger     *zap.Logger
}

// NewGetCanvasHandler creates a new get canvas handler
func NewGetCanvasHandler(canvasRepo ports.CanvasRepository, logger *zap.Logger) *GetCanvasHandler {
	return &GetCanvasHandler{
		canvasRepo: canvasRepo,
		logger:     logger,
	}
}

// Handle returns the project's canvas. A project without a persisted canvas
// gets an empty version-0 canvas, synthesized but not saved — canvases are
// created lazily on the first mutation.
func (h *GetCanvasHandler) Handle(ctx context.Context, query queries.GetCanvasQuery) (*aggregates.Canvas, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	canvas, err := h.canvasRepo.FindByProject(ctx, query.ProjectID)
	if err != nil {
		return nil, err
	}
	if canvas == nil {
		return aggregates.NewCanvas(query.ProjectID), nil
	}
	return canvas, nil
}
