package di

import (
	"context"
	"fmt"

	"dome-backend/application/ports"
	"dome-backend/application/services"
	"dome-backend/infrastructure/config"
	"dome-backend/infrastructure/messaging"
	"dome-backend/infrastructure/messaging/eventbridge"
	dynamostore "dome-backend/infrastructure/persistence/dynamodb"
	"dome-backend/infrastructure/persistence/memory"
	"dome-backend/pkg/auth"
	"dome-backend/pkg/observability"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	ListRepo       ports.ListRepository
	UserRepo       ports.UserRepository
	Publisher      ports.EventPublisher
	ReorderService *services.ReorderService
	ListService    *services.ListService
	UserService    *services.UserService
	TokenGenerator *auth.JWTGenerator
	TokenValidator *auth.JWTValidator
	Metrics        *observability.Collector
	Watcher        *config.Watcher
}

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	listRepo, userRepo, publisher, err := provideStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	jwtConfig := auth.JWTConfig{
		SecretKey:  cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   []string{"dome-api"},
		ExpiryTime: cfg.SessionTTL,
	}
	if jwtConfig.SecretKey == "" {
		// Development fallback; production config validation requires a secret
		jwtConfig.SecretKey = "development-secret-change-in-production"
	}

	generator, err := auth.NewJWTGenerator(jwtConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create token generator: %w", err)
	}
	validator, err := auth.NewJWTValidator(jwtConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}

	container := &Container{
		Config:         cfg,
		Logger:         logger,
		ListRepo:       listRepo,
		UserRepo:       userRepo,
		Publisher:      publisher,
		ReorderService: services.NewReorderService(listRepo, publisher, logger),
		ListService:    services.NewListService(listRepo, publisher, logger),
		UserService:    services.NewUserService(userRepo, logger),
		TokenGenerator: generator,
		TokenValidator: validator,
	}

	if cfg.EnableMetrics {
		container.Metrics = observability.NewCollector("dome")
	}

	if cfg.OverridesPath != "" {
		watcher, err := config.NewWatcher(cfg.OverridesPath, logger)
		if err != nil {
			logger.Warn("Overrides file unavailable, continuing without hot reload", zap.Error(err))
		} else {
			watcher.Start()
			container.Watcher = watcher
		}
	}

	return container, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ListRepository, ports.UserRepository, ports.EventPublisher, error) {
	if cfg.StorageBackend == "memory" {
		logger.Info("Using in-memory storage")
		return memory.NewListStore(), memory.NewUserStore(), messaging.NewNoopPublisher(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awsdynamodb.NewFromConfig(awsCfg)
	listRepo := dynamostore.NewListRepository(client, cfg.DynamoDBTable, logger)
	userRepo := dynamostore.NewUserRepository(client, cfg.DynamoDBTable, cfg.UserIndexName, logger)

	var publisher ports.EventPublisher = messaging.NewNoopPublisher()
	if cfg.EventBusName != "" {
		publisher = eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
	}

	return listRepo, userRepo, publisher, nil
}
