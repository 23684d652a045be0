package events

import "time"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// NodeCreated is raised when a node is added to a canvas.
type NodeCreated struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	NodeID    string `json:"node_id"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(projectID, nodeID string, at time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.node_created",
			Timestamp:   at,
		},
		ProjectID: projectID,
		NodeID:    nodeID,
	}
}

// NodeUpdated is raised when a node's fields change.
type NodeUpdated struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	NodeID    string `json:"node_id"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(projectID, nodeID string, at time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.node_updated",
			Timestamp:   at,
		},
		ProjectID: projectID,
		NodeID:    nodeID,
	}
}

// NodeDeleted is raised when a node is removed, along with its edges.
type NodeDeleted struct {
	BaseEvent
	ProjectID    string `json:"project_id"`
	NodeID       string `json:"node_id"`
	EdgesRemoved int    `json:"edges_removed"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(projectID, nodeID string, edgesRemoved int, at time.Time) NodeDeleted {
	return NodeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.node_deleted",
			Timestamp:   at,
		},
		ProjectID:    projectID,
		NodeID:       nodeID,
		EdgesRemoved: edgesRemoved,
	}
}

// CanvasSaved is raised after a full canvas replacement.
type CanvasSaved struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// NewCanvasSaved creates a CanvasSaved event
func NewCanvasSaved(projectID string, nodeCount, edgeCount int, at time.Time) CanvasSaved {
	return CanvasSaved{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.saved",
			Timestamp:   at,
		},
		ProjectID: projectID,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

// CanvasStructured is raised after an auto-structuring pass merges sections
// and suggested edges into the canvas.
type CanvasStructured struct {
	BaseEvent
	ProjectID      string `json:"project_id"`
	Generation     int    `json:"generation"`
	SectionsAdded  int    `json:"sections_added"`
	EdgesSuggested int    `json:"edges_suggested"`
}

// NewCanvasStructured creates a CanvasStructured event
func NewCanvasStructured(projectID string, generation, sectionsAdded, edgesSuggested int, at time.Time) CanvasStructured {
	return CanvasStructured{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.structured",
			Timestamp:   at,
		},
		ProjectID:      projectID,
		Generation:     generation,
		SectionsAdded:  sectionsAdded,
		EdgesSuggested: edgesSuggested,
	}
}
