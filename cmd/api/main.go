package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/api/handlers"
	"github.com/govscan/backend/internal/auth"
	redisCache "github.com/govscan/backend/internal/cache/redis"
	"github.com/govscan/backend/internal/chat"
	"github.com/govscan/backend/internal/ingestion"
	"github.com/govscan/backend/internal/llm"
	"github.com/govscan/backend/internal/metrics"
	"github.com/govscan/backend/internal/middleware/ratelimit"
	"github.com/govscan/backend/internal/middleware/security"
	"github.com/govscan/backend/internal/middleware/validation"
	"github.com/govscan/backend/internal/storage/sqlite"
	"github.com/govscan/backend/internal/vector/milvus"
	"github.com/govscan/backend/pkg/config"
	appLogger "github.com/govscan/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting GovScan API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	err = milvusClient.CreateCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	// The embedding cache is optional; the server runs without Redis.
	var embeddingCache chat.EmbeddingCache
	cacheClient, err := redisCache.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.EmbeddingTTL)*time.Second,
	)
	if err != nil {
		appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
	} else {
		embeddingCache = cacheClient
		defer cacheClient.Close()
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	processor := ingestion.NewProcessor(
		sqliteClient,
		milvusClient,
		llmClient,
		cfg.Ingestion.ChunkWords,
		cfg.Ingestion.StrideWords,
		cfg.Ingestion.EmbedBatch,
	)

	orchestrator := chat.NewOrchestrator(sqliteClient, milvusClient, llmClient, embeddingCache)

	turnTimeout := time.Duration(cfg.Chat.TimeoutSec) * time.Second

	documentHandler := handlers.NewDocumentHandler(sqliteClient, processor)
	conversationHandler := handlers.NewConversationHandler(sqliteClient, cfg.Selection.MaxDocuments)
	chatHandler := handlers.NewChatHandler(orchestrator, cfg.Chat.Streaming, cfg.Chat.MaxMessageLen, turnTimeout)
	wsHandler := handlers.NewWebSocketHandler(orchestrator, turnTimeout)

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	// Everything registered below requires a bearer token.
	api.Use(auth.Middleware())
	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxBodyBytes: cfg.Server.BodyLimit,
	}))

	api.Get("/documents", documentHandler.ListDocuments)
	api.Post("/documents/ingest", documentHandler.IngestDocument)

	api.Post("/conversations", conversationHandler.CreateConversation)
	api.Get("/conversations/:id", conversationHandler.GetConversation)
	api.Get("/conversations/:id/export", conversationHandler.ExportConversation)
	api.Post("/conversations/:id/chat", chatHandler.HandleTurn)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
