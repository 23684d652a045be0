package ports

import "context"

// ChatMessage is one turn of a chat exchange with the LLM collaborator.
type ChatMessage struct {
	Role    string
	Content string
}

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatService is the LLM collaborator port. Implementations are stateless
// per call; callers own any ordering between calls.
type ChatService interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}

// EmbeddingService is the embedding collaborator port. Embed returns a
// fixed-length vector for the given text.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
