package di

import (
	"context"
	"fmt"
	"strings"

	"docgraph/application/commands/bus"
	commandhandlers "docgraph/application/commands/handlers"
	querybus "docgraph/application/queries/bus"
	queryhandlers "docgraph/application/queries/handlers"
	"docgraph/application/services"
	domainconfig "docgraph/domain/config"
	"docgraph/infrastructure/cache"
	"docgraph/infrastructure/config"
	"docgraph/infrastructure/messaging/eventbridge"
	"docgraph/infrastructure/persistence/dynamodb"
	"docgraph/infrastructure/persistence/postgres"
	"docgraph/interfaces/http/rest"
	"docgraph/pkg/auth"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName = "docgraph"

	// developmentJWTSecret signs tokens for local runs when JWT_SECRET is unset.
	// Production config validation refuses to start without a real secret.
	developmentJWTSecret = "development-secret-change-in-production"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName), zap.String("environment", cfg.Environment)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client. DYNAMODB_ENDPOINT points it
// at DynamoDB Local.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDatabasePool connects to the document store. The cleanup closes
// the pool.
func ProvideDatabasePool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConn)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Closing database pool")
		pool.Close()
	}
	return pool, cleanup, nil
}

// ProvideDocumentRepository creates the Postgres document repository
func ProvideDocumentRepository(pool *pgxpool.Pool, logger *zap.Logger) *postgres.DocumentRepository {
	return postgres.NewDocumentRepository(pool, logger)
}

// ProvideVectorIndex creates the pgvector similarity index
func ProvideVectorIndex(pool *pgxpool.Pool, logger *zap.Logger) *postgres.VectorIndex {
	return postgres.NewVectorIndex(pool, logger)
}

// ProvideConnectionRepository creates the DynamoDB connection repository
func ProvideConnectionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.ConnectionRepository {
	return dynamodb.NewConnectionRepository(
		client,
		cfg.ConnectionsTable,
		cfg.SourceIndexName, // GSI1 - connections by source document
		cfg.TargetIndexName, // GSI2 - connections by target document
		logger,
	)
}

// ProvideEventPublisher creates the EventBridge publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) *eventbridge.Publisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, cfg.EventSource, logger)
}

// ProvideDomainConfig loads business rules for the environment. Discovery
// settings come from the process configuration.
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	domainCfg := domainconfig.LoadDomainConfig(cfg.Environment)
	domainCfg.DiscoveryThreshold = cfg.DiscoveryThreshold
	domainCfg.DiscoveryLimit = cfg.DiscoveryLimit
	if err := domainCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return domainCfg, nil
}

// ProvideMetrics creates metrics instance. With metrics disabled the
// instance has no client and every call is a no-op.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideTracer creates the X-Ray tracer, or nil when tracing is disabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer(serviceName)
}

// ProvideGraphCache creates the in-memory memo of rendered graphs
func ProvideGraphCache(domainCfg *domainconfig.DomainConfig) *cache.LRUCache {
	return cache.NewLRUCache(domainCfg.GraphCacheSize, domainCfg.GraphCacheTTL)
}

// ProvideSimilarityService creates the similarity service
func ProvideSimilarityService(
	documents *postgres.DocumentRepository,
	index *postgres.VectorIndex,
	domainCfg *domainconfig.DomainConfig,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.SimilarityService {
	return services.NewSimilarityService(documents, index, domainCfg, tracer, logger)
}

// ProvideConnectionService creates the connection service
func ProvideConnectionService(
	connections *dynamodb.ConnectionRepository,
	documents *postgres.DocumentRepository,
	publisher *eventbridge.Publisher,
	metrics *observability.Metrics,
	domainCfg *domainconfig.DomainConfig,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.ConnectionService {
	return services.NewConnectionService(connections, documents, publisher, metrics, domainCfg, tracer, logger)
}

// ProvideGraphService creates the graph rendering service
func ProvideGraphService(
	domainCfg *domainconfig.DomainConfig,
	graphCache *cache.LRUCache,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(domainCfg, graphCache, metrics, tracer, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	connections *services.ConnectionService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)

	if err := commandhandlers.NewConnectionCommandHandler(connections).Register(commandBus); err != nil {
		return nil, fmt.Errorf("failed to register connection commands: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	documents *postgres.DocumentRepository,
	similarity *services.SimilarityService,
	connections *services.ConnectionService,
	graphs *services.GraphService,
	domainCfg *domainconfig.DomainConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.NewLoggingMiddleware(logger),
		querybus.NewMetricsMiddleware(metrics),
	)

	handler := queryhandlers.NewDocumentQueryHandler(
		documents,
		similarity,
		connections,
		graphs,
		services.NewEdgeFetchRegistry(logger),
		domainCfg,
		logger,
	)
	if err := handler.Register(queryBus); err != nil {
		return nil, fmt.Errorf("failed to register document queries: %w", err)
	}
	return queryBus, nil
}

// ProvideErrorHandler creates the HTTP error handler. Internal error
// messages and stack traces are exposed in development only.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using development secret")
		secret = developmentJWTSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	domainCfg *domainconfig.DomainConfig,
	validator *auth.JWTValidator,
	errs *pkgerrors.ErrorHandler,
	pool *pgxpool.Pool,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	options := rest.Options{TrustGateway: cfg.IsLambda}
	if cfg.EnableCORS {
		for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				options.AllowedOrigins = append(options.AllowedOrigins, origin)
			}
		}
	}

	ready := func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
	return rest.NewRouter(commandBus, queryBus, domainCfg, validator, errs, ready, options, logger)
}
