package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

func newNode(id string, y float64) *entities.CanvasNode {
	return &entities.CanvasNode{
		ID:       id,
		Type:     "note",
		Title:    "Node " + id,
		Content:  "content of " + id,
		Position: entities.Position{X: 0, Y: y},
		Size:     entities.Size{Width: 200, Height: 120},
		ViewType: entities.ViewTypeFree,
	}
}

func newEdge(id, source, target string) *entities.CanvasEdge {
	return &entities.CanvasEdge{ID: id, SourceID: source, TargetID: target}
}

func TestCanvas_AddNode_RejectsDuplicateID(t *testing.T) {
	canvas := NewCanvas("project-1")

	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	err := canvas.AddNode(newNode("a", 100))

	assert.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Len(t, canvas.Nodes(), 1)
}

func TestCanvas_AddEdge_RequiresBothEndpoints(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))

	err := canvas.AddEdge(newEdge("e1", "a", "missing"))

	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, canvas.Edges())
}

func TestCanvas_RemoveNode_CascadesToEdgesAndSections(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.AddNode(newNode("b", 100)))
	require.NoError(t, canvas.AddNode(newNode("c", 200)))
	require.NoError(t, canvas.AddEdge(newEdge("e1", "a", "b")))
	require.NoError(t, canvas.AddEdge(newEdge("e2", "c", "a")))
	require.NoError(t, canvas.AddEdge(newEdge("e3", "b", "c")))
	require.NoError(t, canvas.AddSection(&entities.CanvasSection{
		ID:      "s1",
		Title:   "Group",
		NodeIDs: []string{"a", "b"},
	}))

	require.NoError(t, canvas.RemoveNode("a"))

	// Removing a node with two attached edges drops exactly those two.
	assert.Len(t, canvas.Edges(), 1)
	for _, e := range canvas.Edges() {
		assert.False(t, e.Touches("a"))
	}
	section, err := canvas.FindSection("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, section.NodeIDs)
	assert.False(t, canvas.HasNode("a"))
}

func TestCanvas_RemoveNode_NotFound(t *testing.T) {
	canvas := NewCanvas("project-1")

	err := canvas.RemoveNode("ghost")

	assert.True(t, apperrors.IsNotFound(err))
}

func TestCanvas_UpdateNode_PartialFields(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))

	title := "Renamed"
	y := 42.0
	err := canvas.UpdateNode("a", entities.NodeUpdate{Title: &title, Y: &y})

	require.NoError(t, err)
	node, err := canvas.FindNode("a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", node.Title)
	assert.Equal(t, 42.0, node.Position.Y)
	assert.Equal(t, "content of a", node.Content)
}

func TestCanvas_UpdateNode_SectionMembershipStaysInSync(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.AddSection(&entities.CanvasSection{ID: "s1", Title: "One"}))
	require.NoError(t, canvas.AddSection(&entities.CanvasSection{ID: "s2", Title: "Two"}))

	s1 := "s1"
	require.NoError(t, canvas.UpdateNode("a", entities.NodeUpdate{SectionID: &s1}))
	s2 := "s2"
	require.NoError(t, canvas.UpdateNode("a", entities.NodeUpdate{SectionID: &s2}))

	first, _ := canvas.FindSection("s1")
	second, _ := canvas.FindSection("s2")
	assert.False(t, first.Contains("a"))
	assert.True(t, second.Contains("a"))

	detach := ""
	require.NoError(t, canvas.UpdateNode("a", entities.NodeUpdate{SectionID: &detach}))
	assert.False(t, second.Contains("a"))
}

func TestCanvas_UpdateNode_UnknownSectionRejected(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))

	ghost := "ghost"
	err := canvas.UpdateNode("a", entities.NodeUpdate{SectionID: &ghost})

	assert.True(t, apperrors.IsNotFound(err))
}

func TestCanvas_GenerationVisibility(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("manual", 0)))

	gen := canvas.BeginGeneration()
	tagged := newNode("generated", 100)
	tagged.Generation = &gen
	require.NoError(t, canvas.AddNode(tagged))

	assert.Len(t, canvas.VisibleNodes(), 2)

	// A second regeneration supersedes the first; the superseded generation
	// is retained but no longer visible.
	canvas.BeginGeneration()
	visible := canvas.VisibleNodes()
	require.Len(t, visible, 1)
	assert.Equal(t, "manual", visible[0].ID)
	assert.Len(t, canvas.Nodes(), 2)

	// A third pass prunes it entirely.
	canvas.BeginGeneration()
	assert.Len(t, canvas.Nodes(), 1)
}

func TestCanvas_SupersededSectionsAgeOut(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.AddNode(newNode("b", 100)))

	gen := canvas.BeginGeneration()
	require.NoError(t, canvas.AddSection(&entities.CanvasSection{
		ID:         "s1",
		Title:      "Group",
		NodeIDs:    []string{"a", "b"},
		Generation: &gen,
	}))
	sectionID := "s1"
	require.NoError(t, canvas.UpdateNode("a", entities.NodeUpdate{SectionID: &sectionID}))

	// Superseded: retained one cycle, no longer presented.
	canvas.BeginGeneration()
	assert.Len(t, canvas.Sections(), 1)
	assert.Empty(t, canvas.VisibleSections())

	// Aged out: pruned, with the member's reference cleared.
	canvas.BeginGeneration()
	assert.Empty(t, canvas.Sections())
	node, err := canvas.FindNode("a")
	require.NoError(t, err)
	assert.Empty(t, node.SectionID)
	assert.NoError(t, canvas.Validate())
}

func TestCanvas_PromoteEdge_CarriesSuggestionForward(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.AddNode(newNode("b", 100)))

	gen := canvas.BeginGeneration()
	tagged := newEdge("e1", "a", "b")
	tagged.Generation = &gen
	require.NoError(t, canvas.AddEdge(tagged))

	next := canvas.BeginGeneration()
	require.Empty(t, canvas.VisibleEdges())

	require.NoError(t, canvas.PromoteEdge("e1", next))
	visible := canvas.VisibleEdges()
	require.Len(t, visible, 1)
	assert.Equal(t, "e1", visible[0].ID)
}

func TestCanvas_PromoteEdge_RejectsManualEdge(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.AddNode(newNode("b", 100)))
	require.NoError(t, canvas.AddEdge(newEdge("e1", "a", "b")))

	err := canvas.PromoteEdge("e1", 1)

	assert.True(t, apperrors.IsValidation(err))
	assert.True(t, apperrors.IsNotFound(canvas.PromoteEdge("missing", 1)))
}

func TestCanvas_RemoveSection_DetachesMembers(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.AddSection(&entities.CanvasSection{
		ID:      "s1",
		Title:   "Group",
		NodeIDs: []string{"a"},
	}))
	sectionID := "s1"
	require.NoError(t, canvas.UpdateNode("a", entities.NodeUpdate{SectionID: &sectionID}))

	require.NoError(t, canvas.RemoveSection("s1"))

	assert.False(t, canvas.HasSection("s1"))
	node, err := canvas.FindNode("a")
	require.NoError(t, err)
	assert.Empty(t, node.SectionID)
	assert.True(t, apperrors.IsNotFound(canvas.RemoveSection("s1")))
}

func TestCanvas_ReplaceContents_ValidatesInvariants(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("keep", 0)))

	err := canvas.ReplaceContents(
		[]*entities.CanvasNode{newNode("a", 0)},
		[]*entities.CanvasEdge{newEdge("e1", "a", "missing")},
		nil,
		DefaultViewport(),
	)

	assert.True(t, apperrors.IsNotFound(err))
	// Rejected replacement leaves the canvas untouched.
	assert.True(t, canvas.HasNode("keep"))
}

func TestCanvas_VersionAdvancesOnlyOnMarkSaved(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	assert.Equal(t, 0, canvas.Version())

	now := time.Now()
	canvas.MarkSaved(1, now)

	assert.Equal(t, 1, canvas.Version())
	assert.Equal(t, now, canvas.UpdatedAt())
}

func TestCanvas_UncommittedEvents(t *testing.T) {
	canvas := NewCanvas("project-1")
	require.NoError(t, canvas.AddNode(newNode("a", 0)))
	require.NoError(t, canvas.RemoveNode("a"))

	recorded := canvas.GetUncommittedEvents()
	require.Len(t, recorded, 2)
	assert.Equal(t, "canvas.node_created", recorded[0].GetEventType())
	assert.Equal(t, "canvas.node_deleted", recorded[1].GetEventType())

	canvas.MarkEventsAsCommitted()
	assert.Empty(t, canvas.GetUncommittedEvents())
}
