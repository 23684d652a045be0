package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// OpenAIClient implements the chat and embedding ports against the OpenAI
// API. One client serves both concerns; the models are fixed at construction.
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	logger         *zap.Logger
}

// NewOpenAIClient creates a new OpenAIClient
func NewOpenAIClient(apiKey, chatModel, embeddingModel string, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:         openai.NewClient(apiKey),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		logger:         logger,
	}
}

// Chat sends a single chat completion request and returns the first choice.
func (c *OpenAIClient) Chat(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == ports.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("Chat completion failed", zap.Error(err), zap.String("model", c.chatModel))
		return "", apperrors.NewExternalError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewExternalError("openai", errNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		c.logger.Error("Embedding request failed", zap.Error(err), zap.String("model", c.embeddingModel))
		return nil, apperrors.NewExternalError("openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewExternalError("openai", errNoEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

var (
	errNoChoices   = errors.New("chat completion returned no choices")
	errNoEmbedding = errors.New("embedding response contained no data")
)

// Compile-time interface checks.
var (
	_ ports.ChatService      = (*OpenAIClient)(nil)
	_ ports.EmbeddingService = (*OpenAIClient)(nil)
)
