package entities

// RelationType classifies the semantic relation an edge expresses.
type RelationType string

const (
	RelationStructural  RelationType = "structural"
	RelationSupports    RelationType = "supports"
	RelationContradicts RelationType = "contradicts"
	RelationCorrelates  RelationType = "correlates"
)

// ValidRelationType reports whether rt is one of the known relation types.
func ValidRelationType(rt RelationType) bool {
	switch rt {
	case RelationStructural, RelationSupports, RelationContradicts, RelationCorrelates:
		return true
	}
	return false
}

// CanvasEdge is a directed connection between two nodes, referenced by ID.
type CanvasEdge struct {
	ID           string                 `json:"id"`
	SourceID     string                 `json:"source_id"`
	TargetID     string                 `json:"target_id"`
	RelationType RelationType           `json:"relation_type,omitempty"`
	Label        string                 `json:"label,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Generation   *int                   `json:"generation,omitempty"`
}

// Touches reports whether the edge has nodeID as either endpoint.
func (e *CanvasEdge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}
