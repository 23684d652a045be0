package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/application/services"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	"github.com/guangtouwangba/weaver-canvas/domain/events"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
	"github.com/guangtouwangba/weaver-canvas/pkg/observability"
)

// AutoStructureResult summarizes one structuring pass.
type AutoStructureResult struct {
	Generation     int
	SectionsAdded  int
	EdgesSuggested int
}

// AutoStructureHandler runs the structuring pipeline over a canvas: cluster
// the visible nodes into sections, suggest semantic edges, and merge both
// into a new generation through the usual versioned save.
type AutoStructureHandler struct {
	canvasRepo ports.CanvasRepository
	structure  *services.StructureService
	publisher  ports.EventPublisher
	metrics    *observability.Metrics
	logger     *zap.Logger

	// Fallbacks for commands that leave the thresholds unset.
	defaultClusterThreshold float64
	defaultLinkThreshold    float64
}

// NewAutoStructureHandler creates a new auto structure handler
func NewAutoStructureHandler(
	canvasRepo ports.CanvasRepository,
	structure *services.StructureService,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	defaultClusterThreshold float64,
	defaultLinkThreshold float64,
	logger *zap.Logger,
) *AutoStructureHandler {
	return &AutoStructureHandler{
		canvasRepo:              canvasRepo,
		structure:               structure,
		publisher:               publisher,
		metrics:                 metrics,
		logger:                  logger,
		defaultClusterThreshold: defaultClusterThreshold,
		defaultLinkThreshold:    defaultLinkThreshold,
	}
}

// Handle executes the auto structure command. The expensive collaborator
// calls (embeddings, relation classification) run once against a snapshot;
// only the cheap merge is replayed when the versioned save conflicts.
func (h *AutoStructureHandler) Handle(ctx context.Context, cmd commands.AutoStructureCommand) (*AutoStructureResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	canvas, err := h.canvasRepo.FindByProject(ctx, cmd.ProjectID)
	if err != nil {
		return nil, err
	}
	if canvas == nil {
		return nil, apperrors.NewNotFoundError("canvas for project \"" + cmd.ProjectID + "\"")
	}

	visible := canvas.VisibleNodes()
	if len(visible) < 2 {
		h.logger.Info("not enough nodes to structure",
			zap.String("projectID", cmd.ProjectID),
			zap.Int("nodes", len(visible)),
		)
		return &AutoStructureResult{Generation: canvas.CurrentGeneration()}, nil
	}

	clusterThreshold := cmd.ClusterThreshold
	if clusterThreshold == 0 {
		clusterThreshold = h.defaultClusterThreshold
	}
	linkThreshold := cmd.LinkThreshold
	if linkThreshold == 0 {
		linkThreshold = h.defaultLinkThreshold
	}

	sections, err := h.structure.ClusterNodes(ctx, visible, clusterThreshold)
	if err != nil {
		return nil, err
	}
	// Only user-drawn links prefilter candidate pairs. Edges suggested by a
	// previous pass must be re-derived here so the merge can carry the ones
	// that still hold into the new generation.
	manual := make([]*entities.CanvasEdge, 0, len(canvas.VisibleEdges()))
	for _, e := range canvas.VisibleEdges() {
		if e.Generation == nil {
			manual = append(manual, e)
		}
	}
	suggested, err := h.structure.SuggestGlobalLinks(ctx, visible, manual, linkThreshold)
	if err != nil {
		return nil, err
	}

	result := &AutoStructureResult{}
	saved, err := saveWithRetry(ctx, h.canvasRepo, cmd.ProjectID, h.logger, func(fresh *aggregates.Canvas) error {
		return h.merge(fresh, sections, suggested, result)
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, saved, h.logger)

	if h.metrics != nil {
		h.metrics.RecordStructuringRun(ctx, result.SectionsAdded, result.EdgesSuggested)
	}
	if h.publisher != nil {
		event := events.NewCanvasStructured(cmd.ProjectID, result.Generation, result.SectionsAdded, result.EdgesSuggested, time.Now())
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish structuring event", zap.Error(err))
		}
	}

	h.logger.Info("canvas structured",
		zap.String("projectID", cmd.ProjectID),
		zap.Int("generation", result.Generation),
		zap.Int("sections", result.SectionsAdded),
		zap.Int("suggestedEdges", result.EdgesSuggested),
		zap.Int("version", saved.Version()),
	)

	return result, nil
}

// merge applies structuring output to a (possibly fresh) snapshot. Nodes
// deleted by concurrent writers since the analysis ran are dropped from
// sections; a section left with fewer than two members is not added.
func (h *AutoStructureHandler) merge(
	canvas *aggregates.Canvas,
	sections []*entities.CanvasSection,
	suggested []*entities.CanvasEdge,
	result *AutoStructureResult,
) error {
	generation := canvas.BeginGeneration()
	result.Generation = generation
	result.SectionsAdded = 0
	result.EdgesSuggested = 0

	for _, section := range sections {
		members := make([]string, 0, len(section.NodeIDs))
		for _, nodeID := range section.NodeIDs {
			if canvas.HasNode(nodeID) {
				members = append(members, nodeID)
			}
		}
		if len(members) < 2 {
			continue
		}

		copied := *section
		copied.NodeIDs = members
		gen := generation
		copied.Generation = &gen
		// Section IDs derive from membership, so an unchanged grouping
		// re-derives the same ID; the prior run's copy is replaced in place.
		if canvas.HasSection(copied.ID) {
			if err := canvas.RemoveSection(copied.ID); err != nil {
				return err
			}
		}
		if err := canvas.AddSection(&copied); err != nil {
			return err
		}
		for _, nodeID := range members {
			sectionID := copied.ID
			if err := canvas.UpdateNode(nodeID, entities.NodeUpdate{SectionID: &sectionID}); err != nil {
				return err
			}
		}
		result.SectionsAdded++
	}

	for _, edge := range suggested {
		if !canvas.HasNode(edge.SourceID) || !canvas.HasNode(edge.TargetID) {
			continue
		}
		if existing := canvas.EdgeBetween(edge.SourceID, edge.TargetID); existing != nil {
			if existing.Generation == nil {
				// User-drawn link takes precedence over the suggestion.
				continue
			}
			// The pair was suggested by a previous pass and still holds;
			// carry the existing edge forward instead of duplicating it.
			if err := canvas.PromoteEdge(existing.ID, generation); err != nil {
				return err
			}
			result.EdgesSuggested++
			continue
		}
		copied := *edge
		gen := generation
		copied.Generation = &gen
		if err := canvas.AddEdge(&copied); err != nil {
			return err
		}
		result.EdgesSuggested++
	}

	return nil
}
