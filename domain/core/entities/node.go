package entities

// ViewType distinguishes the canvas surface a node lives on.
type ViewType string

const (
	ViewTypeFree     ViewType = "free"
	ViewTypeThinking ViewType = "thinking"
)

// Position is a 2D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered extent of a node or section.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SourceRef cites the document a node was extracted from.
type SourceRef struct {
	SourceID string `json:"source_id"`
	Page     int    `json:"page,omitempty"`
}

// CanvasNode is a single note or card on the canvas. Nodes are owned
// exclusively by the Canvas aggregate; edges and sections refer to them by ID
// rather than by pointer.
type CanvasNode struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Position     Position   `json:"position"`
	Size         Size       `json:"size"`
	Color        string     `json:"color,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Source       *SourceRef `json:"source,omitempty"`
	ViewType     ViewType   `json:"view_type"`
	SectionID    string     `json:"section_id,omitempty"`
	Generation   *int       `json:"generation,omitempty"`
	PromotedFrom string     `json:"promoted_from,omitempty"`
}

// NodeUpdate carries a partial node edit. Nil fields are left untouched.
// A non-nil empty SectionID detaches the node from its section.
type NodeUpdate struct {
	Type      *string   `json:"type,omitempty"`
	Title     *string   `json:"title,omitempty"`
	Content   *string   `json:"content,omitempty"`
	X         *float64  `json:"x,omitempty"`
	Y         *float64  `json:"y,omitempty"`
	Width     *float64  `json:"width,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	Color     *string   `json:"color,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	ViewType  *ViewType `json:"view_type,omitempty"`
	SectionID *string   `json:"section_id,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u NodeUpdate) IsEmpty() bool {
	return u.Type == nil && u.Title == nil && u.Content == nil &&
		u.X == nil && u.Y == nil && u.Width == nil && u.Height == nil &&
		u.Color == nil && u.Tags == nil && u.ViewType == nil && u.SectionID == nil
}

// Apply copies the set fields onto the node. Referential checks (SectionID)
// are the aggregate's responsibility, not the entity's.
func (u NodeUpdate) Apply(n *CanvasNode) {
	if u.Type != nil {
		n.Type = *u.Type
	}
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.X != nil {
		n.Position.X = *u.X
	}
	if u.Y != nil {
		n.Position.Y = *u.Y
	}
	if u.Width != nil {
		n.Size.Width = *u.Width
	}
	if u.Height != nil {
		n.Size.Height = *u.Height
	}
	if u.Color != nil {
		n.Color = *u.Color
	}
	if u.Tags != nil {
		tags := make([]string, len(*u.Tags))
		copy(tags, *u.Tags)
		n.Tags = tags
	}
	if u.ViewType != nil {
		n.ViewType = *u.ViewType
	}
	if u.SectionID != nil {
		n.SectionID = *u.SectionID
	}
}
