package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"botgpt/internal/ai"
	"botgpt/internal/app"
	"botgpt/internal/cache"
	"botgpt/internal/config"
	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
	mysqlClient "botgpt/internal/platform/mysql"
	rabbitmqClient "botgpt/internal/platform/rabbitmq"
	redisClient "botgpt/internal/platform/redis"
	"botgpt/internal/prompt"
	"botgpt/internal/repository"
	"botgpt/internal/retrieval"
	"botgpt/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *logger.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	AuthService     *app.AuthService
	ChatService     *app.ChatService
	DocumentService *app.DocumentService
	IngestWorker    *worker.DocumentIngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.Document{},
		&model.DocumentChunk{},
		&model.ConversationDocumentLink{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.DocumentInQueue)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	var completionClient ai.CompletionClient
	if cfg.LLM.APIKey != "" {
		completionClient = ai.NewOpenAICompatibleClient()
	} else {
		log.Warn("no llm api key configured, completions will be unavailable")
	}
	retryPolicy := ai.DefaultRetryPolicy(cfg.LLM.MaxRetries)
	invoker := ai.NewInvoker(completionClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	}, retryPolicy, log)

	packer := prompt.NewPacker(prompt.DefaultSystemPrompt, prompt.Budget{
		MaxModelTokens:  cfg.LLM.MaxModelTokens,
		SafetyThreshold: cfg.LLM.SafetyThreshold,
	}, log)

	retriever := retrieval.NewRetriever(
		embedder,
		repository.NewLinkRepository(mysqlDB),
		repository.NewChunkRepository(mysqlDB),
		repository.NewDocumentRepository(mysqlDB),
		retryPolicy,
		log,
	)

	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	authService := app.NewAuthService(
		repository.NewUserRepository(mysqlDB),
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := app.NewChatService(mysqlDB, retriever, invoker, packer, historyCache, log)

	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.DocumentInQueue)
	documentService := app.NewDocumentService(mysqlDB, embedder, publisher, log)

	ingestWorker := worker.NewDocumentIngestWorker(mqConn, documentService, cfg.RabbitMQ.DocumentInQueue, log)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:          cfg,
		Log:             log,
		MySQL:           mysqlDB,
		Redis:           redisCli,
		MQConn:          mqConn,
		AuthService:     authService,
		ChatService:     chatService,
		DocumentService: documentService,
		IngestWorker:    ingestWorker,
		StartedAt:       time.Now(),
	}, nil
}

// newEmbedder selects the embedding provider from configuration. There is no
// runtime fallback: an unknown provider fails startup.
func newEmbedder(cfg *config.Config) (ai.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return ai.NewOpenAIEmbedder(ai.EmbeddingConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		}), nil
	case "fake":
		return ai.NewFakeEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return closeErr
}
