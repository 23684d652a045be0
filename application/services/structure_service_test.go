package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
)

// fakeEmbedder returns canned vectors keyed by the text's first line.
type fakeEmbedder struct {
	vectors map[string][]float32
	failFor map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	key := strings.SplitN(text, "\n", 2)[0]
	if f.failFor[key] {
		return nil, errors.New("embedding service unavailable")
	}
	vec, ok := f.vectors[key]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", key)
	}
	return vec, nil
}

// fakeChat returns a fixed response, or an error after failAfter calls.
type fakeChat struct {
	response  string
	err       error
	responses []string
	calls     int
}

func (f *fakeChat) Chat(_ context.Context, _ []ports.ChatMessage) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) > 0 {
		r := f.responses[(f.calls-1)%len(f.responses)]
		return r, nil
	}
	return f.response, nil
}

func testNode(id string, y float64) *entities.CanvasNode {
	return &entities.CanvasNode{
		ID:       id,
		Type:     "note",
		Title:    id,
		Content:  "content " + id,
		Position: entities.Position{Y: y},
		Size:     entities.Size{Width: 100, Height: 100},
		ViewType: entities.ViewTypeFree,
	}
}

func TestClusterNodes_IdenticalVectorsFormOneSection(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
	}}
	chat := &fakeChat{response: "Shared Theme"}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	sections, err := svc.ClusterNodes(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 100)}, 0.9)

	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Shared Theme", sections[0].Title)
	assert.Equal(t, []string{"a", "b"}, sections[0].NodeIDs)
}

func TestClusterNodes_DissimilarNodesYieldNoSections(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
	}}
	chat := &fakeChat{response: "unused"}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	sections, err := svc.ClusterNodes(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 100)}, 0.9)

	require.NoError(t, err)
	// Two singleton clusters, both discarded.
	assert.Empty(t, sections)
	assert.Zero(t, chat.calls)
}

func TestClusterNodes_Deterministic(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.99, 0.1, 0},
		"c": {0, 1, 0},
		"d": {0.05, 0.98, 0},
	}}
	nodes := []*entities.CanvasNode{testNode("a", 0), testNode("b", 50), testNode("c", 100), testNode("d", 150)}
	svc := NewStructureService(embedder, &fakeChat{response: "Title"}, zap.NewNop())

	first, err := svc.ClusterNodes(context.Background(), nodes, 0.9)
	require.NoError(t, err)
	second, err := svc.ClusterNodes(context.Background(), nodes, 0.9)
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].NodeIDs, second[i].NodeIDs)
	}
	assert.Equal(t, []string{"a", "b"}, first[0].NodeIDs)
	assert.Equal(t, []string{"c", "d"}, first[1].NodeIDs)
}

func TestClusterNodes_StableSectionIDs(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.99, 0.1, 0},
		"c": {0, 1, 0},
		"d": {0.05, 0.98, 0},
	}}
	nodes := []*entities.CanvasNode{testNode("a", 0), testNode("b", 50), testNode("c", 100), testNode("d", 150)}
	svc := NewStructureService(embedder, &fakeChat{response: "Title"}, zap.NewNop())

	first, err := svc.ClusterNodes(context.Background(), nodes, 0.9)
	require.NoError(t, err)
	second, err := svc.ClusterNodes(context.Background(), nodes, 0.9)
	require.NoError(t, err)

	// Section IDs derive from membership, so identical clusterings carry
	// identical IDs across runs.
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestSnippet_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 300)

	out := snippet(long, 200)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("é", 200)+"...", out)
	assert.Equal(t, "short", snippet("short", 200))
}

func TestClusterNodes_FailedTitleDropsOnlyThatCluster(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
	}}
	chat := &fakeChat{err: errors.New("model timeout")}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	sections, err := svc.ClusterNodes(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 100)}, 0.9)

	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestClusterNodes_FailedEmbeddingSkipsNode(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"a": {1, 0, 0},
			"c": {1, 0, 0},
		},
		failFor: map[string]bool{"b": true},
	}
	svc := NewStructureService(embedder, &fakeChat{response: "Pair"}, zap.NewNop())

	sections, err := svc.ClusterNodes(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 50), testNode("c", 100)}, 0.9)

	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, []string{"a", "c"}, sections[0].NodeIDs)
}

func TestSuggestGlobalLinks_EmitsClassifiedEdge(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
	}}
	chat := &fakeChat{response: `{"relation_type": "supports", "label": "builds on"}`}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	edges, err := svc.SuggestGlobalLinks(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 100)}, nil, 0.9)

	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].SourceID)
	assert.Equal(t, "b", edges[0].TargetID)
	assert.Equal(t, entities.RelationSupports, edges[0].RelationType)
	assert.Equal(t, "builds on", edges[0].Label)
	assert.InDelta(t, 1.0, edges[0].Metadata["similarity"].(float64), 1e-9)
}

func TestSuggestGlobalLinks_SkipsConnectedPairs(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
	}}
	chat := &fakeChat{response: `{"relation_type": "supports", "label": "x"}`}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	// Existing edge in the reverse direction still counts as connected.
	existing := []*entities.CanvasEdge{{ID: "e1", SourceID: "b", TargetID: "a"}}
	edges, err := svc.SuggestGlobalLinks(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 100)}, existing, 0.9)

	require.NoError(t, err)
	assert.Empty(t, edges)
	assert.Zero(t, chat.calls)
}

func TestSuggestGlobalLinks_MalformedResponseSkipsPairOnly(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
		"c": {1, 0, 0},
	}}
	chat := &fakeChat{responses: []string{
		"not json at all",
		`{"relation_type": "correlates", "label": "related"}`,
		`{"relation_type": "sideways", "label": "bad enum"}`,
	}}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	nodes := []*entities.CanvasNode{testNode("a", 0), testNode("b", 100), testNode("c", 200)}
	edges, err := svc.SuggestGlobalLinks(context.Background(), nodes, nil, 0.9)

	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, entities.RelationCorrelates, edges[0].RelationType)
	assert.Equal(t, 3, chat.calls)
}

func TestSuggestGlobalLinks_FencedJSONAccepted(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
	}}
	chat := &fakeChat{response: "```json\n{\"relation_type\": \"contradicts\", \"label\": \"disagrees\"}\n```"}
	svc := NewStructureService(embedder, chat, zap.NewNop())

	edges, err := svc.SuggestGlobalLinks(context.Background(), []*entities.CanvasNode{testNode("a", 0), testNode("b", 100)}, nil, 0.9)

	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, entities.RelationContradicts, edges[0].RelationType)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity(nil, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
