package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"maternal-care-platform/internal/ai"
	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/queue"
	"maternal-care-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	documents := services.NewDocumentService(mongoClient.Database(cfg.DBName))
	extractor := services.NewPDFExtractor()

	ctx := context.Background()
	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings provider:", err)
	}
	defer embedder.Close()

	server := asynq.NewServer(
		queue.RedisConnOpt(cfg),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"documents": 5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(cfg, documents, extractor, embedder)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessDocument, processor.ProcessDocument)

	logger.Info("Starting worker", "concurrency", 5, "redis", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatal("Worker stopped:", err)
	}
}
