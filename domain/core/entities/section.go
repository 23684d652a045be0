package entities

// CanvasSection groups related nodes under a synthesized title. Membership is
// kept as an ordered list of node IDs; the aggregate keeps it consistent with
// the node set. Generation is nil for user-created sections and set to the
// structuring generation that produced automatically derived ones.
type CanvasSection struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	ViewType       ViewType `json:"view_type"`
	IsCollapsed    bool     `json:"is_collapsed"`
	NodeIDs        []string `json:"node_ids"`
	Position       Position `json:"position"`
	Size           Size     `json:"size"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Generation     *int     `json:"generation,omitempty"`
}

// Contains reports whether nodeID is a member of the section.
func (s *CanvasSection) Contains(nodeID string) bool {
	for _, id := range s.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// RemoveMember drops nodeID from the membership list if present.
func (s *CanvasSection) RemoveMember(nodeID string) {
	for i, id := range s.NodeIDs {
		if id == nodeID {
			s.NodeIDs = append(s.NodeIDs[:i], s.NodeIDs[i+1:]...)
			return
		}
	}
}
