package main

import (
	"context"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vidbrief/vidbrief/config"
	"github.com/vidbrief/vidbrief/internal/api/handlers"
	"github.com/vidbrief/vidbrief/internal/api/middleware"
	"github.com/vidbrief/vidbrief/internal/api/routes"
	"github.com/vidbrief/vidbrief/internal/cache"
	"github.com/vidbrief/vidbrief/internal/chat"
	"github.com/vidbrief/vidbrief/internal/logger"
	"github.com/vidbrief/vidbrief/internal/media"
	"github.com/vidbrief/vidbrief/internal/pipeline"
	"github.com/vidbrief/vidbrief/internal/providers/embed"
	"github.com/vidbrief/vidbrief/internal/providers/llm"
	"github.com/vidbrief/vidbrief/internal/providers/stt"
	mongorepo "github.com/vidbrief/vidbrief/internal/repositories/mongo"
	pgrepo "github.com/vidbrief/vidbrief/internal/repositories/postgres"
	"github.com/vidbrief/vidbrief/internal/services"
	"github.com/vidbrief/vidbrief/internal/storage"
	"github.com/vidbrief/vidbrief/internal/taskstore"
	"github.com/vidbrief/vidbrief/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	db := config.MongoDatabase()
	summaryRepo := mongorepo.NewSummaryRepo(db)
	sessionRepo := mongorepo.NewSessionRepo(db)
	videoRepo := mongorepo.NewVideoRepo(db)
	messageRepo := pgrepo.NewMessageRepo(config.PostgresDB)

	// Providers resolve at startup; missing configuration degrades rather
	// than aborts.
	var sttProvider stt.Provider
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		p, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Fatal("Google Speech init error")
		}
		defer p.Close()
		sttProvider = p
	} else {
		log.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, transcription runs in degraded mode")
		sttProvider = stt.Mock{}
	}

	var llmProvider llm.Provider = llm.Unavailable{}
	if projectID := os.Getenv("VERTEX_PROJECT_ID"); projectID != "" {
		location := os.Getenv("VERTEX_LOCATION")
		if location == "" {
			location = "us-central1"
		}
		p, err := llm.NewVertexGemini(ctx, projectID, location, os.Getenv("VERTEX_MODEL"))
		if err != nil {
			log.WithError(err).Fatal("Vertex AI init error")
		}
		defer p.Close()
		llmProvider = p
	} else {
		log.Warn("VERTEX_PROJECT_ID not set, summaries and chat run in degraded mode")
	}

	var embedder embed.Embedder = embed.Unavailable{}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		embedder = embed.NewOpenAI(apiKey, os.Getenv("OPENAI_EMBED_MODEL"))
	} else {
		log.Warn("OPENAI_API_KEY not set, segment ranking runs in degraded mode")
	}

	var uploader storage.Uploader
	var signer storage.Signer
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		u, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.WithError(err).Fatal("GCS init error")
		}
		defer u.Close()
		uploader = u
		signer = u
	}

	tasks := taskstore.NewMemory()
	engines := chat.NewMemoryRegistry()
	redisCache := cache.NewRedisCache(config.RedisClient)

	pipe := &pipeline.Pipeline{
		Chunker:    media.NewChunker(0),
		Assembler:  &pipeline.Assembler{STT: sttProvider, Log: log},
		Ranker:     &pipeline.Ranker{Embedder: embedder, Log: log},
		Summarizer: pipeline.NewSummarizer(llmProvider, embedder, log),
		Log:        log,
	}

	pool := &workers.SummarizeWorkerPool{
		Redis:      config.RedisClient,
		Tasks:      tasks,
		Summaries:  summaryRepo,
		Videos:     videoRepo,
		Pipeline:   pipe,
		NumWorkers: envInt("SUMMARIZE_WORKERS", 2),
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("worker pool start error")
	}

	enqueuer := &workers.RedisEnqueuer{Redis: config.RedisClient}
	summarizeSvc := services.NewSummarizeService(tasks, summaryRepo, enqueuer, redisCache, log)
	chatSvc := services.NewChatService(sessionRepo, summaryRepo, messageRepo, engines, llmProvider, embedder, log)
	videoSvc := services.NewVideoService(videoRepo, uploader, signer, os.Getenv("UPLOAD_DIR"), log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Summarize: handlers.NewSummarizeHandler(summarizeSvc),
		Chat:      handlers.NewChatHandler(chatSvc),
		Video:     handlers.NewVideoHandler(videoSvc),
		WS:        handlers.NewWSHandler(chatSvc),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
