package handlers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/commands"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/application/services"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// memoryCanvasRepo keeps one canvas in memory behind the same conditional
// write contract as the real store.
type memoryCanvasRepo struct {
	canvas *aggregates.Canvas
}

func (r *memoryCanvasRepo) FindByProject(_ context.Context, _ string) (*aggregates.Canvas, error) {
	return r.canvas, nil
}

func (r *memoryCanvasRepo) SaveWithVersion(_ context.Context, canvas *aggregates.Canvas, expectedVersion int) (*aggregates.Canvas, error) {
	stored := 0
	if r.canvas != nil {
		stored = r.canvas.Version()
	}
	if expectedVersion != stored {
		return nil, apperrors.NewConflictError(fmt.Sprintf("canvas version is %d, expected %d", stored, expectedVersion))
	}
	canvas.MarkSaved(expectedVersion+1, time.Now())
	r.canvas = canvas
	return canvas, nil
}

// constantEmbedder maps every text to the same vector, so every node pair
// clusters together and clears any link threshold.
type constantEmbedder struct{}

func (constantEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// scriptedChat answers title prompts with a fixed title and relation prompts
// with a fixed classification.
type scriptedChat struct{}

func (scriptedChat) Chat(_ context.Context, messages []ports.ChatMessage) (string, error) {
	if strings.Contains(messages[0].Content, "classify") {
		return `{"relation_type": "correlates", "label": "related"}`, nil
	}
	return "Related Notes", nil
}

func newAutoStructureHandler(repo *memoryCanvasRepo, publisher ports.EventPublisher) *AutoStructureHandler {
	structure := services.NewStructureService(constantEmbedder{}, scriptedChat{}, zap.NewNop())
	return NewAutoStructureHandler(repo, structure, publisher, nil, 0.78, 0.82, zap.NewNop())
}

func TestAutoStructureHandler_StructuresCanvas(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := &memoryCanvasRepo{canvas: canvasWithNodes(t, "p1", 3, "a", "b")}
	handler := newAutoStructureHandler(repo, relaxedPublisher())

	// Act
	result, err := handler.Handle(ctx, commands.AutoStructureCommand{ProjectID: "p1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generation)
	assert.Equal(t, 1, result.SectionsAdded)
	assert.Equal(t, 1, result.EdgesSuggested)
	assert.Len(t, repo.canvas.VisibleEdges(), 1)
	assert.Len(t, repo.canvas.VisibleSections(), 1)
	assert.Equal(t, 4, repo.canvas.Version())
}

func TestAutoStructureHandler_RepeatedRunKeepsSuggestions(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := &memoryCanvasRepo{canvas: canvasWithNodes(t, "p1", 3, "a", "b")}
	handler := newAutoStructureHandler(repo, relaxedPublisher())

	first, err := handler.Handle(ctx, commands.AutoStructureCommand{ProjectID: "p1"})
	require.NoError(t, err)
	require.Equal(t, 1, first.EdgesSuggested)
	suggestedID := repo.canvas.VisibleEdges()[0].ID

	// Act: a second pass over the unchanged canvas.
	second, err := handler.Handle(ctx, commands.AutoStructureCommand{ProjectID: "p1"})

	// Assert: the still-valid suggestion is carried into the new generation
	// under its original ID, and the superseded section does not pile up.
	require.NoError(t, err)
	assert.Equal(t, 1, second.EdgesSuggested)
	require.Len(t, repo.canvas.VisibleEdges(), 1)
	assert.Equal(t, suggestedID, repo.canvas.VisibleEdges()[0].ID)
	assert.Len(t, repo.canvas.Edges(), 1)
	assert.Len(t, repo.canvas.Sections(), 1)
	assert.Len(t, repo.canvas.VisibleSections(), 1)
	assert.NoError(t, repo.canvas.Validate())
}

func TestAutoStructureHandler_ManualLinkSuppressesSuggestion(t *testing.T) {
	// Arrange
	ctx := context.Background()
	canvas := canvasWithNodes(t, "p1", 3, "a", "b")
	require.NoError(t, canvas.AddEdge(&entities.CanvasEdge{
		ID:           "m1",
		SourceID:     "a",
		TargetID:     "b",
		RelationType: entities.RelationStructural,
	}))
	repo := &memoryCanvasRepo{canvas: canvas}
	handler := newAutoStructureHandler(repo, relaxedPublisher())

	// Act
	result, err := handler.Handle(ctx, commands.AutoStructureCommand{ProjectID: "p1"})

	// Assert: the user-drawn link already covers the pair.
	require.NoError(t, err)
	assert.Equal(t, 0, result.EdgesSuggested)
	assert.Len(t, repo.canvas.Edges(), 1)
}

func TestAutoStructureHandler_DrainsMergeEvents(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := &memoryCanvasRepo{canvas: canvasWithNodes(t, "p1", 3, "a", "b")}
	publisher := new(mockPublisher)
	publisher.On("PublishBatch", mock.Anything, mock.Anything).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	handler := newAutoStructureHandler(repo, publisher)

	// Act
	_, err := handler.Handle(ctx, commands.AutoStructureCommand{ProjectID: "p1"})

	// Assert: the node updates raised during the merge are flushed alongside
	// the structuring notification, leaving nothing uncommitted.
	require.NoError(t, err)
	assert.Empty(t, repo.canvas.GetUncommittedEvents())
	publisher.AssertExpectations(t)
}
