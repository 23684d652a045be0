package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
)

// StructureService derives structure from an unorganized set of canvas
// nodes: clusters of semantically close nodes become sections, and close but
// unconnected node pairs become suggested edges. Both operations are
// deterministic for a fixed set of embeddings, input order, and threshold;
// only the LLM-produced titles and labels vary.
type StructureService struct {
	embedder ports.EmbeddingService
	chat     ports.ChatService
	logger   *zap.Logger
}

// NewStructureService creates a new structure service
func NewStructureService(embedder ports.EmbeddingService, chat ports.ChatService, logger *zap.Logger) *StructureService {
	return &StructureService{
		embedder: embedder,
		chat:     chat,
		logger:   logger,
	}
}

type cluster struct {
	leader  []float32
	members []*entities.CanvasNode
}

// ClusterNodes groups nodes into sections by single-pass greedy leader
// clustering. Nodes are processed in input order: each joins the most
// similar existing leader at or above the threshold, otherwise it becomes a
// new leader. Clusters with fewer than two members are discarded. Each
// surviving cluster gets one LLM call for a short title; a failed title call
// drops that cluster only.
func (s *StructureService) ClusterNodes(ctx context.Context, nodes []*entities.CanvasNode, similarityThreshold float64) ([]*entities.CanvasSection, error) {
	var clusters []*cluster

	for _, node := range nodes {
		vec, err := s.embedder.Embed(ctx, embeddingText(node))
		if err != nil {
			s.logger.Warn("skipping node with failed embedding",
				zap.String("nodeID", node.ID),
				zap.Error(err),
			)
			continue
		}

		best := -1
		bestSim := math.Inf(-1)
		for i, cl := range clusters {
			sim := CosineSimilarity(vec, cl.leader)
			if sim > bestSim {
				bestSim = sim
				best = i
			}
		}

		if best >= 0 && bestSim >= similarityThreshold {
			clusters[best].members = append(clusters[best].members, node)
		} else {
			clusters = append(clusters, &cluster{leader: vec, members: []*entities.CanvasNode{node}})
		}
	}

	sections := make([]*entities.CanvasSection, 0, len(clusters))
	for _, cl := range clusters {
		if len(cl.members) < 2 {
			continue
		}

		title, err := s.synthesizeTitle(ctx, cl.members)
		if err != nil {
			s.logger.Warn("skipping cluster with failed title synthesis",
				zap.Int("members", len(cl.members)),
				zap.Error(err),
			)
			continue
		}

		nodeIDs := make([]string, len(cl.members))
		for i, m := range cl.members {
			nodeIDs[i] = m.ID
		}

		position, size := boundingBox(cl.members)
		sections = append(sections, &entities.CanvasSection{
			ID:       sectionID(nodeIDs),
			Title:    title,
			ViewType: cl.members[0].ViewType,
			NodeIDs:  nodeIDs,
			Position: position,
			Size:     size,
		})
	}

	return sections, nil
}

// SuggestGlobalLinks proposes edges between unconnected node pairs whose
// content embeddings are at or above the similarity threshold. Each
// qualifying pair is classified individually by the LLM; a failed or
// unparseable classification skips that pair without aborting the rest.
func (s *StructureService) SuggestGlobalLinks(ctx context.Context, nodes []*entities.CanvasNode, existingEdges []*entities.CanvasEdge, similarityThreshold float64) ([]*entities.CanvasEdge, error) {
	connected := make(map[string]bool, len(existingEdges))
	for _, e := range existingEdges {
		connected[pairKey(e.SourceID, e.TargetID)] = true
	}

	vectors := make(map[string][]float32, len(nodes))
	for _, node := range nodes {
		vec, err := s.embedder.Embed(ctx, embeddingText(node))
		if err != nil {
			s.logger.Warn("skipping node with failed embedding",
				zap.String("nodeID", node.ID),
				zap.Error(err),
			)
			continue
		}
		vectors[node.ID] = vec
	}

	var suggested []*entities.CanvasEdge
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			source, target := nodes[i], nodes[j]
			if connected[pairKey(source.ID, target.ID)] {
				continue
			}
			sourceVec, ok := vectors[source.ID]
			if !ok {
				continue
			}
			targetVec, ok := vectors[target.ID]
			if !ok {
				continue
			}

			sim := CosineSimilarity(sourceVec, targetVec)
			if sim < similarityThreshold {
				continue
			}

			relation, label, err := s.classifyRelation(ctx, source, target)
			if err != nil {
				s.logger.Warn("skipping pair with failed relation classification",
					zap.String("sourceID", source.ID),
					zap.String("targetID", target.ID),
					zap.Error(err),
				)
				continue
			}

			suggested = append(suggested, &entities.CanvasEdge{
				ID:           uuid.New().String(),
				SourceID:     source.ID,
				TargetID:     target.ID,
				RelationType: relation,
				Label:        label,
				Metadata:     map[string]interface{}{"similarity": sim},
			})
		}
	}

	return suggested, nil
}

func (s *StructureService) synthesizeTitle(ctx context.Context, members []*entities.CanvasNode) (string, error) {
	var sb strings.Builder
	for _, m := range members {
		fmt.Fprintf(&sb, "- %s: %s\n", m.Title, snippet(m.Content, 200))
	}

	response, err := s.chat.Chat(ctx, []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: "You name groups of related notes. Reply with a short title of at most six words. No quotes, no punctuation at the end."},
		{Role: ports.RoleUser, Content: "Name this group of notes:\n" + sb.String()},
	})
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(response), `"`))
	if title == "" {
		return "", fmt.Errorf("empty title from model")
	}
	return title, nil
}

type relationResponse struct {
	RelationType string `json:"relation_type"`
	Label        string `json:"label"`
}

func (s *StructureService) classifyRelation(ctx context.Context, source, target *entities.CanvasNode) (entities.RelationType, string, error) {
	prompt := fmt.Sprintf(
		"Note A:\nTitle: %s\nContent: %s\n\nNote B:\nTitle: %s\nContent: %s\n\nClassify the relation from A to B.",
		source.Title, snippet(source.Content, 500),
		target.Title, snippet(target.Content, 500),
	)

	response, err := s.chat.Chat(ctx, []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: `You classify relations between notes. Respond with strict JSON only: {"relation_type": one of "structural"|"supports"|"contradicts"|"correlates", "label": short phrase}.`},
		{Role: ports.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", "", err
	}

	var parsed relationResponse
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return "", "", fmt.Errorf("unparseable relation response: %w", err)
	}

	relation := entities.RelationType(parsed.RelationType)
	if !entities.ValidRelationType(relation) {
		return "", "", fmt.Errorf("unknown relation type %q", parsed.RelationType)
	}
	return relation, parsed.Label, nil
}

// CosineSimilarity computes the cosine of two vectors, in [-1, 1]. Zero or
// empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na <= 0 || nb <= 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func embeddingText(node *entities.CanvasNode) string {
	if node.Title == "" {
		return node.Content
	}
	return node.Title + "\n" + node.Content
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// sectionNamespace seeds name-based section IDs so the same cluster
// membership always yields the same section ID across runs.
var sectionNamespace = uuid.MustParse("9f2c41d6-8a3e-4b57-b1c0-6de4a0f3c7e2")

func sectionID(nodeIDs []string) string {
	return uuid.NewSHA1(sectionNamespace, []byte(strings.Join(nodeIDs, "\n"))).String()
}

func snippet(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// extractJSON trims surrounding prose or code fences a model may wrap
// around a JSON object.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return response
	}
	return response[start : end+1]
}

func boundingBox(members []*entities.CanvasNode) (entities.Position, entities.Size) {
	const padding = 40.0

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, m := range members {
		minX = math.Min(minX, m.Position.X)
		minY = math.Min(minY, m.Position.Y)
		maxX = math.Max(maxX, m.Position.X+m.Size.Width)
		maxY = math.Max(maxY, m.Position.Y+m.Size.Height)
	}

	return entities.Position{X: minX - padding, Y: minY - padding},
		entities.Size{Width: maxX - minX + 2*padding, Height: maxY - minY + 2*padding}
}
