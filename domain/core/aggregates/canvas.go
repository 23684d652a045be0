package aggregates

import (
	"fmt"
	"time"

	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	"github.com/guangtouwangba/weaver-canvas/domain/events"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// Viewport is the persisted camera state for a canvas.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport returns the initial camera state for an empty canvas.
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1}
}

// Canvas is the aggregate root for one project's knowledge canvas.
// It owns the nodes, edges, and sections, and guards their referential
// invariants on every mutation. Mutations never touch the version counter:
// the version advances only when the store confirms a persisted save, which
// keeps it usable as the compare-and-swap token.
type Canvas struct {
	projectID         string
	nodes             []*entities.CanvasNode
	edges             []*entities.CanvasEdge
	sections          []*entities.CanvasSection
	viewport          Viewport
	currentGeneration int
	version           int
	updatedAt         time.Time
	events            []events.DomainEvent
}

// NewCanvas creates an empty canvas at version 0. The canvas does not exist
// in the store until its first successful save.
func NewCanvas(projectID string) *Canvas {
	return &Canvas{
		projectID: projectID,
		viewport:  DefaultViewport(),
		version:   0,
		updatedAt: time.Now(),
	}
}

// ReconstructCanvas recreates a canvas from stored data without raising events.
func ReconstructCanvas(
	projectID string,
	nodes []*entities.CanvasNode,
	edges []*entities.CanvasEdge,
	sections []*entities.CanvasSection,
	viewport Viewport,
	currentGeneration int,
	version int,
	updatedAt time.Time,
) *Canvas {
	return &Canvas{
		projectID:         projectID,
		nodes:             nodes,
		edges:             edges,
		sections:          sections,
		viewport:          viewport,
		currentGeneration: currentGeneration,
		version:           version,
		updatedAt:         updatedAt,
	}
}

// ProjectID returns the owning project's identifier.
func (c *Canvas) ProjectID() string { return c.projectID }

// Version returns the CAS token for the next save.
func (c *Canvas) Version() int { return c.version }

// UpdatedAt returns when the canvas was last persisted or mutated.
func (c *Canvas) UpdatedAt() time.Time { return c.updatedAt }

// CurrentGeneration returns the active regeneration marker.
func (c *Canvas) CurrentGeneration() int { return c.currentGeneration }

// Viewport returns the persisted camera state.
func (c *Canvas) Viewport() Viewport { return c.viewport }

// SetViewport replaces the camera state.
func (c *Canvas) SetViewport(v Viewport) {
	c.viewport = v
	c.updatedAt = time.Now()
}

// Nodes returns all nodes, including those from superseded generations.
func (c *Canvas) Nodes() []*entities.CanvasNode {
	out := make([]*entities.CanvasNode, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Edges returns all edges, including those from superseded generations.
func (c *Canvas) Edges() []*entities.CanvasEdge {
	out := make([]*entities.CanvasEdge, len(c.edges))
	copy(out, c.edges)
	return out
}

// Sections returns all sections.
func (c *Canvas) Sections() []*entities.CanvasSection {
	out := make([]*entities.CanvasSection, len(c.sections))
	copy(out, c.sections)
	return out
}

// VisibleNodes returns nodes belonging to the current generation. Untagged
// nodes are always visible.
func (c *Canvas) VisibleNodes() []*entities.CanvasNode {
	out := make([]*entities.CanvasNode, 0, len(c.nodes))
	for _, n := range c.nodes {
		if n.Generation == nil || *n.Generation == c.currentGeneration {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges returns edges belonging to the current generation. Untagged
// edges are always visible.
func (c *Canvas) VisibleEdges() []*entities.CanvasEdge {
	out := make([]*entities.CanvasEdge, 0, len(c.edges))
	for _, e := range c.edges {
		if e.Generation == nil || *e.Generation == c.currentGeneration {
			out = append(out, e)
		}
	}
	return out
}

// VisibleSections returns sections belonging to the current generation.
// Untagged sections are always visible.
func (c *Canvas) VisibleSections() []*entities.CanvasSection {
	out := make([]*entities.CanvasSection, 0, len(c.sections))
	for _, s := range c.sections {
		if s.Generation == nil || *s.Generation == c.currentGeneration {
			out = append(out, s)
		}
	}
	return out
}

// FindNode returns the node with the given ID.
func (c *Canvas) FindNode(id string) (*entities.CanvasNode, error) {
	if n := c.nodeByID(id); n != nil {
		return n, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %q", id))
}

// HasNode reports whether a node exists without error.
func (c *Canvas) HasNode(id string) bool {
	return c.nodeByID(id) != nil
}

// FindSection returns the section with the given ID.
func (c *Canvas) FindSection(id string) (*entities.CanvasSection, error) {
	if s := c.sectionByID(id); s != nil {
		return s, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("section %q", id))
}

// AddNode appends a node to the canvas. Node IDs must be unique within one
// canvas; a set SectionID must reference an existing section.
func (c *Canvas) AddNode(node *entities.CanvasNode) error {
	if node == nil {
		return apperrors.NewValidationError("node cannot be nil")
	}
	if node.ID == "" {
		return apperrors.NewValidationError("node id required")
	}
	if c.nodeByID(node.ID) != nil {
		return apperrors.NewValidationError(fmt.Sprintf("node %q already exists in canvas", node.ID))
	}
	if node.SectionID != "" && c.sectionByID(node.SectionID) == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("section %q", node.SectionID))
	}

	c.nodes = append(c.nodes, node)
	c.updatedAt = time.Now()

	c.addEvent(events.NewNodeCreated(c.projectID, node.ID, c.updatedAt))
	return nil
}

// UpdateNode applies a partial edit to an existing node. A set SectionID in
// the update must reference an existing section (empty string detaches).
func (c *Canvas) UpdateNode(id string, update entities.NodeUpdate) error {
	node := c.nodeByID(id)
	if node == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("node %q", id))
	}
	if update.SectionID != nil && *update.SectionID != "" && c.sectionByID(*update.SectionID) == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("section %q", *update.SectionID))
	}

	// Keep section membership lists in sync with the node's section field.
	if update.SectionID != nil && *update.SectionID != node.SectionID {
		if prev := c.sectionByID(node.SectionID); prev != nil {
			prev.RemoveMember(id)
		}
		if next := c.sectionByID(*update.SectionID); next != nil && !next.Contains(id) {
			next.NodeIDs = append(next.NodeIDs, id)
		}
	}

	update.Apply(node)
	c.updatedAt = time.Now()

	c.addEvent(events.NewNodeUpdated(c.projectID, id, c.updatedAt))
	return nil
}

// RemoveNode deletes a node and cascades: every edge touching it is removed
// and every section membership referencing it is dropped.
func (c *Canvas) RemoveNode(id string) error {
	idx := -1
	for i, n := range c.nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("node %q", id))
	}

	kept := c.edges[:0]
	removed := 0
	for _, e := range c.edges {
		if e.Touches(id) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	c.edges = kept

	for _, s := range c.sections {
		s.RemoveMember(id)
	}

	c.nodes = append(c.nodes[:idx], c.nodes[idx+1:]...)
	c.updatedAt = time.Now()

	c.addEvent(events.NewNodeDeleted(c.projectID, id, removed, c.updatedAt))
	return nil
}

// AddEdge appends an edge after validating that both endpoints exist.
func (c *Canvas) AddEdge(edge *entities.CanvasEdge) error {
	if edge == nil {
		return apperrors.NewValidationError("edge cannot be nil")
	}
	if edge.ID == "" {
		return apperrors.NewValidationError("edge id required")
	}
	if c.edgeByID(edge.ID) != nil {
		return apperrors.NewValidationError(fmt.Sprintf("edge %q already exists in canvas", edge.ID))
	}
	if c.nodeByID(edge.SourceID) == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("node %q", edge.SourceID))
	}
	if c.nodeByID(edge.TargetID) == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("node %q", edge.TargetID))
	}

	c.edges = append(c.edges, edge)
	c.updatedAt = time.Now()
	return nil
}

// Connected reports whether an edge in either direction links the two nodes.
func (c *Canvas) Connected(a, b string) bool {
	return c.EdgeBetween(a, b) != nil
}

// EdgeBetween returns the edge linking the two nodes in either direction, or
// nil when none exists. Superseded generations count; callers that care
// inspect the returned edge's Generation.
func (c *Canvas) EdgeBetween(a, b string) *entities.CanvasEdge {
	for _, e := range c.edges {
		if (e.SourceID == a && e.TargetID == b) || (e.SourceID == b && e.TargetID == a) {
			return e
		}
	}
	return nil
}

// PromoteEdge re-tags a generated edge into the given generation, carrying a
// still-valid suggestion forward instead of letting it age out. Untagged
// (user-drawn) edges cannot be promoted.
func (c *Canvas) PromoteEdge(id string, generation int) error {
	edge := c.edgeByID(id)
	if edge == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("edge %q", id))
	}
	if edge.Generation == nil {
		return apperrors.NewValidationError(fmt.Sprintf("edge %q is not generated", id))
	}
	gen := generation
	edge.Generation = &gen
	c.updatedAt = time.Now()
	return nil
}

// AddSection appends a section after validating every member node ID.
func (c *Canvas) AddSection(section *entities.CanvasSection) error {
	if section == nil {
		return apperrors.NewValidationError("section cannot be nil")
	}
	if section.ID == "" {
		return apperrors.NewValidationError("section id required")
	}
	if c.sectionByID(section.ID) != nil {
		return apperrors.NewValidationError(fmt.Sprintf("section %q already exists in canvas", section.ID))
	}
	for _, nodeID := range section.NodeIDs {
		if c.nodeByID(nodeID) == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("node %q", nodeID))
		}
	}

	c.sections = append(c.sections, section)
	c.updatedAt = time.Now()
	return nil
}

// HasSection reports whether a section exists without error.
func (c *Canvas) HasSection(id string) bool {
	return c.sectionByID(id) != nil
}

// RemoveSection deletes a section and detaches its member nodes.
func (c *Canvas) RemoveSection(id string) error {
	idx := -1
	for i, s := range c.sections {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("section %q", id))
	}

	for _, n := range c.nodes {
		if n.SectionID == id {
			n.SectionID = ""
		}
	}

	c.sections = append(c.sections[:idx], c.sections[idx+1:]...)
	c.updatedAt = time.Now()
	return nil
}

// BeginGeneration advances the regeneration marker and returns the new value.
// Content tagged with a generation older than the previous one is pruned;
// the immediately superseded generation is retained so one regeneration can
// be inspected or rolled back before it ages out on the next pass.
func (c *Canvas) BeginGeneration() int {
	c.currentGeneration++
	c.pruneStaleGenerations()
	c.updatedAt = time.Now()
	return c.currentGeneration
}

func (c *Canvas) pruneStaleGenerations() {
	cutoff := c.currentGeneration - 1

	keptSections := c.sections[:0]
	for _, s := range c.sections {
		if s.Generation != nil && *s.Generation < cutoff {
			// Members may still exist (typically reassigned already); any
			// leftover references must not dangle.
			for _, n := range c.nodes {
				if n.SectionID == s.ID {
					n.SectionID = ""
				}
			}
			continue
		}
		keptSections = append(keptSections, s)
	}
	c.sections = keptSections

	keptEdges := c.edges[:0]
	for _, e := range c.edges {
		if e.Generation != nil && *e.Generation < cutoff {
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	c.edges = keptEdges

	stale := map[string]bool{}
	keptNodes := c.nodes[:0]
	for _, n := range c.nodes {
		if n.Generation != nil && *n.Generation < cutoff {
			stale[n.ID] = true
			continue
		}
		keptNodes = append(keptNodes, n)
	}
	c.nodes = keptNodes

	if len(stale) == 0 {
		return
	}
	keptEdges = c.edges[:0]
	for _, e := range c.edges {
		if stale[e.SourceID] || stale[e.TargetID] {
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	c.edges = keptEdges
	for _, s := range c.sections {
		for id := range stale {
			s.RemoveMember(id)
		}
	}
}

// ReplaceContents swaps in a full new canvas state (the save-canvas
// operation), validating the replacement's invariants before committing.
func (c *Canvas) ReplaceContents(
	nodes []*entities.CanvasNode,
	edges []*entities.CanvasEdge,
	sections []*entities.CanvasSection,
	viewport Viewport,
) error {
	replacement := &Canvas{
		projectID: c.projectID,
		nodes:     nodes,
		edges:     edges,
		sections:  sections,
	}
	if err := replacement.Validate(); err != nil {
		return err
	}

	c.nodes = nodes
	c.edges = edges
	c.sections = sections
	c.viewport = viewport
	c.updatedAt = time.Now()

	c.addEvent(events.NewCanvasSaved(c.projectID, len(nodes), len(edges), c.updatedAt))
	return nil
}

// Validate checks the aggregate's referential invariants.
func (c *Canvas) Validate() error {
	seen := make(map[string]bool, len(c.nodes))
	for _, n := range c.nodes {
		if n.ID == "" {
			return apperrors.NewValidationError("node id required")
		}
		if seen[n.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}
	for _, e := range c.edges {
		if !seen[e.SourceID] {
			return apperrors.NewNotFoundError(fmt.Sprintf("node %q", e.SourceID))
		}
		if !seen[e.TargetID] {
			return apperrors.NewNotFoundError(fmt.Sprintf("node %q", e.TargetID))
		}
	}
	sectionIDs := make(map[string]bool, len(c.sections))
	for _, s := range c.sections {
		if s.ID == "" {
			return apperrors.NewValidationError("section id required")
		}
		if sectionIDs[s.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("duplicate section id %q", s.ID))
		}
		sectionIDs[s.ID] = true
		for _, nodeID := range s.NodeIDs {
			if !seen[nodeID] {
				return apperrors.NewNotFoundError(fmt.Sprintf("node %q", nodeID))
			}
		}
	}
	for _, n := range c.nodes {
		if n.SectionID != "" && !sectionIDs[n.SectionID] {
			return apperrors.NewNotFoundError(fmt.Sprintf("section %q", n.SectionID))
		}
	}
	return nil
}

// MarkSaved records a confirmed persisted save. Only the store's save path
// should call this; it is what makes the version advance by exactly one per
// successful write.
func (c *Canvas) MarkSaved(version int, at time.Time) {
	c.version = version
	c.updatedAt = at
}

// GetUncommittedEvents returns all uncommitted domain events
func (c *Canvas) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (c *Canvas) MarkEventsAsCommitted() {
	c.events = nil
}

func (c *Canvas) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}

func (c *Canvas) nodeByID(id string) *entities.CanvasNode {
	if id == "" {
		return nil
	}
	for _, n := range c.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (c *Canvas) edgeByID(id string) *entities.CanvasEdge {
	for _, e := range c.edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (c *Canvas) sectionByID(id string) *entities.CanvasSection {
	if id == "" {
		return nil
	}
	for _, s := range c.sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}
