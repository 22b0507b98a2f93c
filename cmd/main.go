package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"maternal-care-platform/internal/ai"
	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/database"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/queue"
	"maternal-care-platform/internal/rag"
	"maternal-care-platform/internal/telemetry"
	"maternal-care-platform/middleware"
	"maternal-care-platform/routes"
	"maternal-care-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("maternal-care-platform", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled, exporter init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// MongoDB holds uploaded documents and the persistent chunk mirror.
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	mongoDB := mongoClient.Database(cfg.DBName)

	// Postgres holds chat history, profiles, recommendations, and
	// predictions.
	pg, err := config.ConnectPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Postgres:", err)
	}
	defer pg.Close()

	store, err := database.NewStore(pg)
	if err != nil {
		log.Fatal("Failed to initialize store:", err)
	}

	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings provider:", err)
	}
	defer embedder.Close()

	llm := ai.NewGroqClient(cfg)

	documents := services.NewDocumentService(mongoDB)
	extractor := services.NewPDFExtractor()

	system := rag.NewSystem(rag.Options{
		Chunker:          rag.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		Index:            rag.NewVectorIndex(cfg.VectorDimensions),
		Embedder:         embedder,
		LLM:              llm,
		Budgeter:         rag.NewContextBudgeter(rag.HeuristicCounter{}, cfg.MaxContextTokens, 500),
		ChunkSink:        documents,
		SearchLogger:     store,
		SnapshotPath:     cfg.SnapshotFile,
		HashPath:         cfg.KBHashFile,
		DefaultTopK:      cfg.DefaultTopK,
		DefaultThreshold: cfg.SimilarityThreshold,
	})

	bootstrapIndex(ctx, cfg, system, documents)

	predictor := services.NewPredictorClient(cfg)
	recommender := services.NewRecommender(store, system.Retriever(), llm)
	exporter := services.NewExportService(store)

	asynqClient := asynq.NewClient(queue.RedisConnOpt(cfg))
	defer asynqClient.Close()

	cron := services.NewCronService(cfg, system, recommender)
	if err := cron.Start(); err != nil {
		log.Fatal("Failed to start cron service:", err)
	}
	defer cron.Stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	routes.SetupHealthRoutes(router, cfg, system, store)
	routes.SetupChatRoutes(router, store, system, exporter, authMiddleware)
	routes.SetupRAGRoutes(router, store, system, documents, authMiddleware)
	routes.SetupUploadRoutes(router, cfg, documents, extractor, system, asynqClient, authMiddleware)
	routes.SetupRecommendationRoutes(router, store, recommender, authMiddleware)
	routes.SetupPredictionRoutes(router, store, predictor, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	system.Snapshot()
	logger.Info("Server exited")
}

// bootstrapIndex fills the in-memory index at startup. Persisted chunk
// rows win when they exist (they include worker-side ingestions);
// otherwise the bundled knowledge base is loaded or built.
func bootstrapIndex(ctx context.Context, cfg *config.Config, system *rag.System, documents *services.DocumentService) {
	ids, chunks, vectors, err := documents.LoadAllChunks(ctx)
	if err != nil {
		logger.Warn("Failed to load persisted chunks", "error", err)
	}

	if len(ids) > 0 {
		for _, v := range vectors {
			rag.NormalizeVector(v)
		}
		if err := system.Index().Add(vectors, ids, chunks); err != nil {
			logger.Error("Failed to restore index from persisted chunks", "error", err)
		} else {
			logger.Info("Index restored from persisted chunks", "chunks", len(ids))
			return
		}
	}

	corpus, err := os.ReadFile(cfg.DefaultKBFile)
	if err != nil {
		logger.Warn("No default knowledge base available, index starts empty",
			"path", cfg.DefaultKBFile, "error", err)
		return
	}

	if err := system.LoadOrBuild(ctx, string(corpus), filepath.Base(cfg.DefaultKBFile)); err != nil {
		logger.Error("Failed to build index from default knowledge base", "error", err)
	}
}
