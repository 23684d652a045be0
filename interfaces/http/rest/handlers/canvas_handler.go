package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	commandhandlers "github.com/guangtouwangba/weaver-canvas/application/commands/handlers"
	"github.com/guangtouwangba/weaver-canvas/application/queries"
	queryhandlers "github.com/guangtouwangba/weaver-canvas/application/queries/handlers"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	"github.com/guangtouwangba/weaver-canvas/pkg/common"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
	"github.com/guangtouwangba/weaver-canvas/pkg/utils"
)

// CanvasHandler handles canvas-related HTTP requests
type CanvasHandler struct {
	createNode     *commandhandlers.CreateNodeHandler
	updateNode     *commandhandlers.UpdateNodeHandler
	deleteNode     *commandhandlers.DeleteNodeHandler
	saveCanvas     *commandhandlers.SaveCanvasHandler
	autoStructure  *commandhandlers.AutoStructureHandler
	getCanvas      *queryhandlers.GetCanvasHandler
	generateReport *queryhandlers.GenerateReportHandler
	logger         *zap.Logger
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(
	createNode *commandhandlers.CreateNodeHandler,
	updateNode *commandhandlers.UpdateNodeHandler,
	deleteNode *commandhandlers.DeleteNodeHandler,
	saveCanvas *commandhandlers.SaveCanvasHandler,
	autoStructure *commandhandlers.AutoStructureHandler,
	getCanvas *queryhandlers.GetCanvasHandler,
	generateReport *queryhandlers.GenerateReportHandler,
	logger *zap.Logger,
) *CanvasHandler {
	return &CanvasHandler{
		createNode:     createNode,
		updateNode:     updateNode,
		deleteNode:     deleteNode,
		saveCanvas:     saveCanvas,
		autoStructure:  autoStructure,
		getCanvas:      getCanvas,
		generateReport: generateReport,
		logger:         logger,
	}
}

// CanvasResponse is the full canvas document returned to the client
type CanvasResponse struct {
	ProjectID  string                    `json:"project_id"`
	Nodes      []*entities.CanvasNode    `json:"nodes"`
	Edges      []*entities.CanvasEdge    `json:"edges"`
	Sections   []*entities.CanvasSection `json:"sections"`
	Viewport   aggregates.Viewport       `json:"viewport"`
	Generation int                       `json:"generation"`
	Version    int                       `json:"version"`
}

func toCanvasResponse(canvas *aggregates.Canvas) CanvasResponse {
	return CanvasResponse{
		ProjectID:  canvas.ProjectID(),
		Nodes:      canvas.VisibleNodes(),
		Edges:      canvas.VisibleEdges(),
		Sections:   canvas.VisibleSections(),
		Viewport:   canvas.Viewport(),
		Generation: canvas.CurrentGeneration(),
		Version:    canvas.Version(),
	}
}

// SaveCanvasRequest replaces the full canvas contents
type SaveCanvasRequest struct {
	Nodes    []*entities.CanvasNode    `json:"nodes"`
	Edges    []*entities.CanvasEdge    `json:"edges"`
	Sections []*entities.CanvasSection `json:"sections"`
	Viewport *aggregates.Viewport      `json:"viewport,omitempty"`
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	ID       string              `json:"id,omitempty"`
	Type     string              `json:"type,omitempty" validate:"omitempty,max=50"`
	Title    string              `json:"title" validate:"required,max=500"`
	Content  string              `json:"content,omitempty"`
	Position entities.Position   `json:"position"`
	Size     entities.Size       `json:"size"`
	Color    string              `json:"color,omitempty"`
	Tags     []string            `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Source   *entities.SourceRef `json:"source,omitempty"`
	ViewType entities.ViewType   `json:"view_type,omitempty" validate:"omitempty,oneof=free thinking"`
}

// AutoStructureRequest tunes the structuring thresholds for one run
type AutoStructureRequest struct {
	ClusterThreshold *float64 `json:"cluster_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	LinkThreshold    *float64 `json:"link_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
}

// AutoStructureResponse summarizes one structuring run
type AutoStructureResponse struct {
	Generation     int `json:"generation"`
	SectionsAdded  int `json:"sections_added"`
	EdgesSuggested int `json:"edges_suggested"`
}

// GenerateReportRequest selects nodes and an instruction for a report
type GenerateReportRequest struct {
	NodeIDs     []string `json:"node_ids,omitempty"`
	Instruction string   `json:"instruction" validate:"required,max=2000"`
}

// GenerateReportResponse carries the generated report text
type GenerateReportResponse struct {
	Report string `json:"report"`
}

// GetCanvas handles GET /projects/{projectID}/canvas
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	canvas, err := h.getCanvas.Handle(r.Context(), queries.GetCanvasQuery{ProjectID: projectID})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toCanvasResponse(canvas))
}

// SaveCanvas handles PUT /projects/{projectID}/canvas
func (h *CanvasHandler) SaveCanvas(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req SaveCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	canvas, err := h.saveCanvas.Handle(r.Context(), commands.SaveCanvasCommand{
		ProjectID: projectID,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		Sections:  req.Sections,
		Viewport:  req.Viewport,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toCanvasResponse(canvas))
}

// CreateNode handles POST /projects/{projectID}/canvas/nodes
func (h *CanvasHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	node, err := h.createNode.Handle(r.Context(), commands.CreateNodeCommand{
		ProjectID: projectID,
		Node: entities.CanvasNode{
			ID:       req.ID,
			Type:     req.Type,
			Title:    req.Title,
			Content:  req.Content,
			Position: req.Position,
			Size:     req.Size,
			Color:    req.Color,
			Tags:     req.Tags,
			Source:   req.Source,
			ViewType: req.ViewType,
		},
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, node)
}

// UpdateNode handles PATCH /projects/{projectID}/canvas/nodes/{nodeID}
func (h *CanvasHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	nodeID := chi.URLParam(r, "nodeID")

	var update entities.NodeUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	node, err := h.updateNode.Handle(r.Context(), commands.UpdateNodeCommand{
		ProjectID: projectID,
		NodeID:    nodeID,
		Update:    update,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /projects/{projectID}/canvas/nodes/{nodeID}
func (h *CanvasHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	nodeID := chi.URLParam(r, "nodeID")

	err := h.deleteNode.Handle(r.Context(), commands.DeleteNodeCommand{
		ProjectID: projectID,
		NodeID:    nodeID,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": nodeID, "status": "deleted"})
}

// AutoStructure handles POST /projects/{projectID}/canvas/auto-structure
func (h *CanvasHandler) AutoStructure(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	// Body is optional; an empty body runs with configured thresholds.
	var req AutoStructureRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
			return
		}
	}

	cmd := commands.AutoStructureCommand{ProjectID: projectID}
	if req.ClusterThreshold != nil {
		cmd.ClusterThreshold = *req.ClusterThreshold
	}
	if req.LinkThreshold != nil {
		cmd.LinkThreshold = *req.LinkThreshold
	}

	result, err := h.autoStructure.Handle(r.Context(), cmd)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, AutoStructureResponse{
		Generation:     result.Generation,
		SectionsAdded:  result.SectionsAdded,
		EdgesSuggested: result.EdgesSuggested,
	})
}

// GenerateReport handles POST /projects/{projectID}/canvas/report
func (h *CanvasHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	report, err := h.generateReport.Handle(r.Context(), queries.GenerateReportQuery{
		ProjectID:   projectID,
		NodeIDs:     req.NodeIDs,
		Instruction: req.Instruction,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, GenerateReportResponse{Report: report})
}
