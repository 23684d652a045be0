package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/application/queries"
	"github.com/guangtouwangba/weaver-canvas/application/services"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// GenerateReportHandler handles report synthesis queries
type GenerateReportHandler struct {
	canvasRepo ports.CanvasRepository
	narrative  *services.NarrativeService
	logger     *zap.Logger
}

// NewGenerateReportHandler creates a new generate report handler
func NewGenerateReportHandler(canvasRepo ports.CanvasRepository, narrative *services.NarrativeService, logger *zap.Logger) *GenerateReportHandler {
	return &GenerateReportHandler{
		canvasRepo: canvasRepo,
		narrative:  narrative,
		logger:     logger,
	}
}

// Handle plans a narrative path over the selected nodes and synthesizes a
// report from the ordered context. Unknown node IDs in the selection fail
// with a not-found error before any LLM call is made.
func (h *GenerateReportHandler) Handle(ctx context.Context, query queries.GenerateReportQuery) (string, error) {
	if err := query.Validate(); err != nil {
		return "", err
	}

	canvas, err := h.canvasRepo.FindByProject(ctx, query.ProjectID)
	if err != nil {
		return "", err
	}
	if canvas == nil {
		return "", apperrors.NewNotFoundError("canvas for project \"" + query.ProjectID + "\"")
	}

	visible := canvas.VisibleNodes()
	selected := visible
	if len(query.NodeIDs) > 0 {
		byID := make(map[string]*entities.CanvasNode, len(visible))
		for _, n := range visible {
			byID[n.ID] = n
		}
		selected = make([]*entities.CanvasNode, 0, len(query.NodeIDs))
		for _, id := range query.NodeIDs {
			node, ok := byID[id]
			if !ok {
				return "", apperrors.NewNotFoundError("node \"" + id + "\"")
			}
			selected = append(selected, node)
		}
	}

	edges := canvas.VisibleEdges()
	ordered := h.narrative.PlanNarrativePath(selected, edges)
	report := h.narrative.GenerateReport(ctx, ordered, edges, query.Instruction)

	h.logger.Info("report generated",
		zap.String("projectID", query.ProjectID),
		zap.Int("nodes", len(ordered)),
	)

	return report, nil
}
