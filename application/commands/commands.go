package commands

import (
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// CreateNodeCommand adds one node to a project's canvas. An empty Node.ID is
// filled in by the handler.
type CreateNodeCommand struct {
	ProjectID string
	Node      entities.CanvasNode
}

// Validate checks command preconditions
func (c CreateNodeCommand) Validate() error {
	if c.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	if c.Node.Title == "" && c.Node.Content == "" {
		return apperrors.NewValidationError("node needs a title or content")
	}
	return nil
}

// UpdateNodeCommand applies a partial edit to one node.
type UpdateNodeCommand struct {
	ProjectID string
	NodeID    string
	Update    entities.NodeUpdate
}

// Validate checks command preconditions
func (c UpdateNodeCommand) Validate() error {
	if c.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	if c.NodeID == "" {
		return apperrors.NewValidationError("node id required")
	}
	if c.Update.IsEmpty() {
		return apperrors.NewValidationError("update has no fields set")
	}
	return nil
}

// DeleteNodeCommand removes one node, cascading to its edges and section
// memberships.
type DeleteNodeCommand struct {
	ProjectID string
	NodeID    string
}

// Validate checks command preconditions
func (c DeleteNodeCommand) Validate() error {
	if c.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	if c.NodeID == "" {
		return apperrors.NewValidationError("node id required")
	}
	return nil
}

// SaveCanvasCommand replaces the full canvas contents for a project. A nil
// Viewport keeps the stored one.
type SaveCanvasCommand struct {
	ProjectID string
	Nodes     []*entities.CanvasNode
	Edges     []*entities.CanvasEdge
	Sections  []*entities.CanvasSection
	Viewport  *aggregates.Viewport
}

// Validate checks command preconditions
func (c SaveCanvasCommand) Validate() error {
	if c.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	return nil
}

// AutoStructureCommand runs a structuring pass over the project's visible
// nodes: sections from clustering plus suggested semantic edges, merged into
// a new generation. Zero thresholds fall back to configured defaults.
type AutoStructureCommand struct {
	ProjectID        string
	ClusterThreshold float64
	LinkThreshold    float64
}

// Validate checks command preconditions
func (c AutoStructureCommand) Validate() error {
	if c.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	if c.ClusterThreshold < 0 || c.ClusterThreshold > 1 {
		return apperrors.NewValidationError("cluster threshold must be in [0, 1]")
	}
	if c.LinkThreshold < 0 || c.LinkThreshold > 1 {
		return apperrors.NewValidationError("link threshold must be in [0, 1]")
	}
	return nil
}
