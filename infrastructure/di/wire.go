//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/infrastructure/config"
	"github.com/guangtouwangba/weaver-canvas/interfaces/http/rest/handlers"
	"github.com/guangtouwangba/weaver-canvas/pkg/auth"
	"github.com/guangtouwangba/weaver-canvas/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	CanvasRepo     ports.CanvasRepository
	EventPublisher ports.EventPublisher
	Metrics        *observability.Metrics
	JWTValidator   *auth.JWTValidator
	CanvasHandler  *handlers.CanvasHandler
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideCanvasRepository,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideOpenAIClient,
	ProvideChatService,
	ProvideEmbeddingService,
	ProvideStructureService,
	ProvideNarrativeService,
	ProvideJWTValidator,
	ProvideCreateNodeHandler,
	ProvideUpdateNodeHandler,
	ProvideDeleteNodeHandler,
	ProvideSaveCanvasHandler,
	ProvideAutoStructureHandler,
	ProvideGetCanvasHandler,
	ProvideGenerateReportHandler,
	ProvideCanvasHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
