package di

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"noteflow-backend/application/ports"
	"noteflow-backend/application/services"
	"noteflow-backend/infrastructure/ai"
	"noteflow-backend/infrastructure/config"
	"noteflow-backend/infrastructure/persistence/dynamodb"
	"noteflow-backend/infrastructure/persistence/memory"
	"noteflow-backend/interfaces/websocket"
)

// Container holds the application's wired dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Hub          *websocket.Hub
	GraphService *services.GraphService
	AIDispatcher *services.AIDispatcher
}

// InitializeContainer wires the full dependency graph from configuration.
// A missing or invalid AI credential fails startup rather than degrading
// the websocket AI channel at runtime.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	noteRepo, connRepo, err := ProvideRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create repositories: %w", err)
	}

	hub := websocket.NewHub(logger)

	completer, err := ProvideCompleter(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Hub:          hub,
		GraphService: services.NewGraphService(noteRepo, connRepo, hub, logger),
		AIDispatcher: services.NewAIDispatcher(completer, logger),
	}, nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideRepositories creates the note and connection repositories for the
// configured persistence driver
func ProvideRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.NoteRepository, ports.ConnectionRepository, error) {
	switch cfg.PersistenceDriver {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg)

		logger.Info("Using DynamoDB persistence",
			zap.String("table", cfg.DynamoDBTable),
			zap.String("region", cfg.AWSRegion),
		)
		return dynamodb.NewNoteRepository(client, cfg.DynamoDBTable, logger),
			dynamodb.NewConnectionRepository(client, cfg.DynamoDBTable, logger),
			nil

	case "memory":
		logger.Info("Using in-memory persistence")
		return memory.NewNoteRepository(), memory.NewConnectionRepository(), nil

	default:
		return nil, nil, fmt.Errorf("unknown persistence driver %q", cfg.PersistenceDriver)
	}
}

// ProvideCompleter creates the AI completion client
func ProvideCompleter(cfg *config.Config, logger *zap.Logger) (ports.Completer, error) {
	return ai.NewClient(
		cfg.OpenAIAPIKey,
		cfg.OpenAIModel,
		time.Duration(cfg.AITimeoutSeconds)*time.Second,
		logger,
	)
}
