package queries

import apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"

// GetCanvasQuery fetches a project's canvas.
type GetCanvasQuery struct {
	ProjectID string
}

// Validate checks query preconditions
func (q GetCanvasQuery) Validate() error {
	if q.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	return nil
}

// GenerateReportQuery synthesizes a narrative report from a node selection.
// An empty NodeIDs selects every visible node.
type GenerateReportQuery struct {
	ProjectID   string
	NodeIDs     []string
	Instruction string
}

// Validate checks query preconditions
func (q GenerateReportQuery) Validate() error {
	if q.ProjectID == "" {
		return apperrors.NewValidationError("project id required")
	}
	return nil
}
