package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
)

// NarrativeService linearizes a node subset into a readable order and
// synthesizes a report from it. Ordering is purely in-memory; only report
// generation talks to the LLM collaborator.
type NarrativeService struct {
	chat   ports.ChatService
	logger *zap.Logger
}

// NewNarrativeService creates a new narrative service
func NewNarrativeService(chat ports.ChatService, logger *zap.Logger) *NarrativeService {
	return &NarrativeService{
		chat:   chat,
		logger: logger,
	}
}

// PlanNarrativePath orders the given nodes topologically over the edges
// whose endpoints are both in the set, using Kahn's algorithm with ties
// broken by ascending vertical position (node ID as the final tiebreak).
// Nodes left unvisited by the sort — cycles or fragments — are appended
// sorted by vertical position, so every input node appears exactly once.
func (s *NarrativeService) PlanNarrativePath(nodes []*entities.CanvasNode, edges []*entities.CanvasEdge) []*entities.CanvasNode {
	inSet := make(map[string]*entities.CanvasNode, len(nodes))
	for _, n := range nodes {
		inSet[n.ID] = n
	}

	inDegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if inSet[e.SourceID] == nil || inSet[e.TargetID] == nil {
			continue
		}
		inDegree[e.TargetID]++
		successors[e.SourceID] = append(successors[e.SourceID], e.TargetID)
	}

	visited := make(map[string]bool, len(nodes))
	ordered := make([]*entities.CanvasNode, 0, len(nodes))

	for len(ordered) < len(nodes) {
		next := s.lowestReady(nodes, inDegree, visited)
		if next == nil {
			break // only cyclic remainder left
		}
		visited[next.ID] = true
		ordered = append(ordered, next)
		for _, succ := range successors[next.ID] {
			inDegree[succ]--
		}
	}

	if len(ordered) < len(nodes) {
		var remainder []*entities.CanvasNode
		for _, n := range nodes {
			if !visited[n.ID] {
				remainder = append(remainder, n)
			}
		}
		sort.SliceStable(remainder, func(i, j int) bool {
			if remainder[i].Position.Y != remainder[j].Position.Y {
				return remainder[i].Position.Y < remainder[j].Position.Y
			}
			return remainder[i].ID < remainder[j].ID
		})
		s.logger.Debug("narrative path fell back to positional order for part of the graph",
			zap.Int("ordered", len(ordered)),
			zap.Int("fallback", len(remainder)),
		)
		ordered = append(ordered, remainder...)
	}

	return ordered
}

func (s *NarrativeService) lowestReady(nodes []*entities.CanvasNode, inDegree map[string]int, visited map[string]bool) *entities.CanvasNode {
	var best *entities.CanvasNode
	for _, n := range nodes {
		if visited[n.ID] || inDegree[n.ID] != 0 {
			continue
		}
		if best == nil ||
			n.Position.Y < best.Position.Y ||
			(n.Position.Y == best.Position.Y && n.ID < best.ID) {
			best = n
		}
	}
	return best
}

// GenerateReport builds a textual context block per node in the given order
// and sends one LLM call framed by the caller's instruction. A failed call
// yields a human-readable error string rather than an error: this is a
// terminal single-call operation with nothing to partially complete.
func (s *NarrativeService) GenerateReport(ctx context.Context, orderedNodes []*entities.CanvasNode, edges []*entities.CanvasEdge, instruction string) string {
	titles := make(map[string]string, len(orderedNodes))
	inSet := make(map[string]bool, len(orderedNodes))
	for _, n := range orderedNodes {
		titles[n.ID] = n.Title
		inSet[n.ID] = true
	}

	var sb strings.Builder
	for i, n := range orderedNodes {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n", i+1, n.Title, n.Type, n.Content)
		for _, e := range edges {
			if e.SourceID != n.ID || !inSet[e.TargetID] {
				continue
			}
			fmt.Fprintf(&sb, "-> leads to '%s'\n", titles[e.TargetID])
		}
		sb.WriteString("\n")
	}

	if instruction == "" {
		instruction = "Write a coherent report that synthesizes the notes below in their given order."
	}

	response, err := s.chat.Chat(ctx, []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: "You write well-structured reports from ordered research notes. Follow the reading order of the notes."},
		{Role: ports.RoleUser, Content: instruction + "\n\n" + sb.String()},
	})
	if err != nil {
		s.logger.Error("report generation failed", zap.Error(err))
		return fmt.Sprintf("Report generation failed: %v", err)
	}

	return response
}
