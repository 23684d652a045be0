package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	commandhandlers "github.com/guangtouwangba/weaver-canvas/application/commands/handlers"
	"github.com/guangtouwangba/weaver-canvas/application/ports"
	queryhandlers "github.com/guangtouwangba/weaver-canvas/application/queries/handlers"
	"github.com/guangtouwangba/weaver-canvas/application/services"
	"github.com/guangtouwangba/weaver-canvas/infrastructure/config"
	"github.com/guangtouwangba/weaver-canvas/infrastructure/llm"
	"github.com/guangtouwangba/weaver-canvas/infrastructure/messaging/eventbridge"
	"github.com/guangtouwangba/weaver-canvas/infrastructure/persistence/dynamodb"
	"github.com/guangtouwangba/weaver-canvas/interfaces/http/rest/handlers"
	"github.com/guangtouwangba/weaver-canvas/pkg/auth"
	"github.com/guangtouwangba/weaver-canvas/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideCanvasRepository creates the canvas repository
func ProvideCanvasRepository(client *awsdynamodb.Client, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) ports.CanvasRepository {
	return dynamodb.NewCanvasRepository(client, cfg.DynamoDBTable, metrics, logger)
}

// ProvideEventPublisher creates the event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the metrics sink, or nil when metrics are disabled
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("WeaverCanvas/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client)
}

// ProvideOpenAIClient creates the OpenAI-backed LLM client
func ProvideOpenAIClient(cfg *config.Config, logger *zap.Logger) *llm.OpenAIClient {
	return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.EmbeddingModel, logger)
}

// ProvideChatService exposes the OpenAI client through the chat port
func ProvideChatService(client *llm.OpenAIClient) ports.ChatService {
	return client
}

// ProvideEmbeddingService exposes the OpenAI client through the embedding port
func ProvideEmbeddingService(client *llm.OpenAIClient) ports.EmbeddingService {
	return client
}

// ProvideStructureService creates the clustering and link suggestion service
func ProvideStructureService(embedder ports.EmbeddingService, chat ports.ChatService, logger *zap.Logger) *services.StructureService {
	return services.NewStructureService(embedder, chat, logger)
}

// ProvideNarrativeService creates the linearization and report service
func ProvideNarrativeService(chat ports.ChatService, logger *zap.Logger) *services.NarrativeService {
	return services.NewNarrativeService(chat, logger)
}

// ProvideJWTValidator creates the token validator, or nil when no secret is
// configured (local development)
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		logger.Warn("JWT_SECRET not set, requests run as anonymous")
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideCreateNodeHandler creates the create node command handler
func ProvideCreateNodeHandler(repo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *commandhandlers.CreateNodeHandler {
	return commandhandlers.NewCreateNodeHandler(repo, publisher, logger)
}

// ProvideUpdateNodeHandler creates the update node command handler
func ProvideUpdateNodeHandler(repo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *commandhandlers.UpdateNodeHandler {
	return commandhandlers.NewUpdateNodeHandler(repo, publisher, logger)
}

// ProvideDeleteNodeHandler creates the delete node command handler
func ProvideDeleteNodeHandler(repo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *commandhandlers.DeleteNodeHandler {
	return commandhandlers.NewDeleteNodeHandler(repo, publisher, logger)
}

// ProvideSaveCanvasHandler creates the save canvas command handler
func ProvideSaveCanvasHandler(repo ports.CanvasRepository, publisher ports.EventPublisher, logger *zap.Logger) *commandhandlers.SaveCanvasHandler {
	return commandhandlers.NewSaveCanvasHandler(repo, publisher, logger)
}

// ProvideAutoStructureHandler creates the auto structure command handler
func ProvideAutoStructureHandler(
	repo ports.CanvasRepository,
	structure *services.StructureService,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *commandhandlers.AutoStructureHandler {
	return commandhandlers.NewAutoStructureHandler(
		repo,
		structure,
		publisher,
		metrics,
		cfg.ClusterThreshold,
		cfg.LinkThreshold,
		logger,
	)
}

// ProvideGetCanvasHandler creates the get canvas query handler
func ProvideGetCanvasHandler(repo ports.CanvasRepository, logger *zap.Logger) *queryhandlers.GetCanvasHandler {
	return queryhandlers.NewGetCanvasHandler(repo, logger)
}

// ProvideGenerateReportHandler creates the generate report query handler
func ProvideGenerateReportHandler(repo ports.CanvasRepository, narrative *services.NarrativeService, logger *zap.Logger) *queryhandlers.GenerateReportHandler {
	return queryhandlers.NewGenerateReportHandler(repo, narrative, logger)
}

// ProvideCanvasHandler creates the REST canvas handler
func ProvideCanvasHandler(
	createNode *commandhandlers.CreateNodeHandler,
	updateNode *commandhandlers.UpdateNodeHandler,
	deleteNode *commandhandlers.DeleteNodeHandler,
	saveCanvas *commandhandlers.SaveCanvasHandler,
	autoStructure *commandhandlers.AutoStructureHandler,
	getCanvas *queryhandlers.GetCanvasHandler,
	generateReport *queryhandlers.GenerateReportHandler,
	logger *zap.Logger,
) *handlers.CanvasHandler {
	return handlers.NewCanvasHandler(
		createNode,
		updateNode,
		deleteNode,
		saveCanvas,
		autoStructure,
		getCanvas,
		generateReport,
		logger,
	)
}
