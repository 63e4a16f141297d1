//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"docgraph/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDatabasePool,
	ProvideDocumentRepository,
	ProvideVectorIndex,
	ProvideConnectionRepository,
	ProvideEventPublisher,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideTracer,
	ProvideGraphCache,
	ProvideSimilarityService,
	ProvideConnectionService,
	ProvideGraphService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideJWTValidator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
