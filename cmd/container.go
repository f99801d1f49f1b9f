package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"

	"github.com/resumatch/resumatch/internal/ai/embeddings"
	"github.com/resumatch/resumatch/internal/ai/reranker"
	"github.com/resumatch/resumatch/matching/match/matchapi"
	"github.com/resumatch/resumatch/matching/match/matchsrv"
	"github.com/resumatch/resumatch/matching/record/recordapi"
	"github.com/resumatch/resumatch/matching/record/recordinfra"
	"github.com/resumatch/resumatch/matching/record/recordsrv"
	"github.com/resumatch/resumatch/matching/record/worker"
	"github.com/resumatch/resumatch/pkg/fsx"
	"github.com/resumatch/resumatch/pkg/fsx/fsxs3"
	"github.com/resumatch/resumatch/pkg/logx"
)

// Container holds all application dependencies
type Container struct {
	// Infrastructure
	DB         *sqlx.DB
	Redis      *redis.Client
	Qdrant     *qdrant.Client
	S3Client   *s3.Client
	FileSystem fsx.FileSystem

	// Adapters
	VectorIndex *recordinfra.QdrantIndex

	// Services
	RecordService *recordsrv.Service
	MatchService  *matchsrv.Service

	// Workers
	IndexWorker *worker.IndexWorker

	// API Handlers
	RecordHandlers *recordapi.RecordHandlers
	MatchHandlers  *matchapi.MatchHandlers
}

// NewContainer initializes the dependency injection container
func NewContainer() *Container {
	c := &Container{}
	c.initInfrastructure()
	c.initServices()
	return c
}

func (c *Container) initInfrastructure() {
	// 1. Database Connection
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASS")
	dbName := os.Getenv("DB_NAME")
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPass, dbName)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	c.DB = db

	// 2. Redis Connection
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASS"),
		DB:       0,
	})
	if err := c.Redis.Ping(context.Background()).Err(); err != nil {
		logx.Warnf("Failed to connect to Redis: %v", err)
	}

	// 3. Qdrant Connection
	qdrantHost := os.Getenv("QDRANT_HOST")
	if qdrantHost == "" {
		qdrantHost = "localhost"
	}
	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   qdrantHost,
		Port:   envInt("QDRANT_PORT", 6334),
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_USE_TLS") == "true",
	})
	if err != nil {
		logx.Fatalf("Failed to connect to Qdrant: %v", err)
	}
	c.Qdrant = qc

	// 4. AWS S3 Configuration
	awsRegion := os.Getenv("AWS_REGION")
	awsBucket := os.Getenv("AWS_BUCKET")
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(awsRegion))
	if err != nil {
		logx.Fatalf("unable to load SDK config, %v", err)
	}
	c.S3Client = s3.NewFromConfig(cfg)
	c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, awsBucket, "uploads")
}

func (c *Container) initServices() {
	// --- Repositories & Adapters ---
	recordRepo := recordinfra.NewPostgresRecordRepository(c.DB)
	profileStore := recordinfra.NewPostgresProfileStore(c.DB)
	jobRepo := recordinfra.NewPostgresJobRepository(c.DB)
	queue := recordinfra.NewRedisQueue(c.Redis, "indexing_jobs")

	collectionPrefix := os.Getenv("QDRANT_COLLECTION_PREFIX")
	if collectionPrefix == "" {
		collectionPrefix = "resumatch"
	}
	c.VectorIndex = recordinfra.NewQdrantIndex(c.Qdrant, collectionPrefix, embeddings.Dimension)

	// --- AI Clients ---
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		logx.Warn("OPENAI_API_KEY is not set, embedding and ranking calls will fail")
	}
	embedder := embeddings.NewGenerator(openaiKey)
	ranker := reranker.NewReranker(openaiKey)

	// --- Domain Services ---
	policy := recordsrv.PropagationPolicy{
		ChunkSize: envInt("PROPAGATION_CHUNK_SIZE", recordsrv.DefaultPropagationPolicy.ChunkSize),
		Delay:     time.Duration(envInt("PROPAGATION_DELAY_MS", 200)) * time.Millisecond,
	}

	c.RecordService = recordsrv.NewService(
		recordRepo,
		c.VectorIndex,
		profileStore,
		embedder,
		jobRepo,
		queue,
		c.FileSystem,
		policy,
	)
	c.MatchService = matchsrv.NewService(recordRepo, c.VectorIndex, embedder, ranker)

	// --- Workers ---
	c.IndexWorker = worker.NewIndexWorker(
		c.RecordService,
		jobRepo,
		queue,
		envInt("WORKER_COUNT", 3),
	)

	// --- Handlers ---
	c.RecordHandlers = recordapi.NewRecordHandlers(c.RecordService, c.FileSystem)
	c.MatchHandlers = matchapi.NewMatchHandlers(c.MatchService)
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logx.Warnf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}
