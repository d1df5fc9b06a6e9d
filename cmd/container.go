package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/internal/ai/embeddings"
	"github.com/Abraxas-365/relay-match/internal/ai/geminioracle"
	"github.com/Abraxas-365/relay-match/internal/ai/openaioracle"
	"github.com/Abraxas-365/relay-match/internal/config"
	"github.com/Abraxas-365/relay-match/internal/scheduler"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/application/applicationinfra"
	"github.com/Abraxas-365/relay-match/recruitment/candidate/candidateinfra"
	"github.com/Abraxas-365/relay-match/recruitment/job/jobinfra"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/Abraxas-365/relay-match/recruitment/matching/matchapi"
	"github.com/Abraxas-365/relay-match/recruitment/matching/matchinfra"
	"github.com/Abraxas-365/relay-match/recruitment/matching/matchsrv"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/Abraxas-365/relay-match/recruitment/notification/notificationapi"
	"github.com/Abraxas-365/relay-match/recruitment/notification/notificationinfra"
	"github.com/Abraxas-365/relay-match/recruitment/notification/notificationsrv"
	"github.com/Abraxas-365/relay-match/recruitment/notification/worker"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Infrastructure
	DB       *sqlx.DB
	Redis    *redis.Client
	S3Client *s3.Client
	Metrics  *prometheus.Registry
	Sink     telemetry.Sink
	Queue    *notificationinfra.RedisTaskQueue

	// Services
	MatchService *matchsrv.MatchService
	Dispatcher   *notificationsrv.Dispatcher

	// API Handlers
	MatchHandlers        *matchapi.MatchHandlers
	NotificationHandlers *notificationapi.NotificationHandlers
}

// NewContainer initializes the dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}
	if err := c.initInfrastructure(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initServices(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	// 1. Database Connection
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	c.DB = db

	// 2. Redis Connection
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		logx.Warnf("Failed to connect to Redis: %v", err)
	}

	// 3. AWS S3, only needed for result export
	if c.Config.Export.Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Config.Export.Region))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		c.S3Client = s3.NewFromConfig(awsCfg)
	}

	// 4. Telemetry
	c.Metrics = prometheus.NewRegistry()
	c.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Sink = telemetry.Multi{telemetry.NewPrometheusSink(c.Metrics), telemetry.LogSink{}}

	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	cfg := c.Config

	// --- Repositories ---
	candidateRepo := candidateinfra.NewPostgresCandidateRepository(c.DB)
	jobRepo := jobinfra.NewPostgresJobRepository(c.DB)
	applicationRepo := applicationinfra.NewPostgresApplicationRepository(c.DB)
	historyRepo := matchinfra.NewPostgresHistoryRepository(c.DB)
	notificationRepo := notificationinfra.NewPostgresRepository(c.DB)

	// --- Oracle & embeddings ---
	oracle, err := newOracle(ctx, cfg.Oracle)
	if err != nil {
		return err
	}

	var embedder matchsrv.Embedder
	if cfg.Oracle.OpenAIAPIKey != "" {
		embedder = embeddings.NewGenerator(cfg.Oracle.OpenAIAPIKey, cfg.Oracle.EmbeddingModel)
	}

	var exporter matching.Exporter
	if c.S3Client != nil {
		exporter = matchinfra.NewS3Exporter(c.S3Client, cfg.Export.Bucket, cfg.Export.Prefix)
	}

	// --- Matching ---
	calculator := matchsrv.NewCalculator(oracle, c.Sink, cfg.Oracle.Timeout)
	c.MatchService = matchsrv.NewMatchService(
		candidateRepo,
		jobRepo,
		applicationRepo,
		calculator,
		matchsrv.NewWeightEstimator(historyRepo, c.Sink),
		matchsrv.NewRanker(calculator, historyRepo, c.Sink),
		matchsrv.NewOrchestrator(calculator, applicationRepo, historyRepo, c.Sink),
		embedder,
		exporter,
		matchinfra.NewRedisWatermark(c.Redis, matchinfra.DefaultWatermarkKey),
		matchConfig(cfg.Matching, exporter != nil),
	)

	// --- Notifications ---
	var sender notification.EmailSender = notificationinfra.LogSender{}
	if cfg.SMTP.Host != "" {
		sender = notificationinfra.NewSMTPSender(cfg.SMTP)
	} else {
		logx.Warn("SMTP host is not set, emails are written to the log")
	}

	c.Queue = notificationinfra.NewRedisTaskQueue(c.Redis, cfg.Queue.Name)
	c.Dispatcher = notificationsrv.NewDispatcher(
		c.MatchService,
		candidateRepo,
		jobRepo,
		notificationRepo,
		notificationRepo,
		notificationsrv.NewHistoryFeed(jobRepo, candidateRepo, historyRepo),
		sender,
		c.Queue,
		notificationsrv.NewTracker(cfg.Tracking.Secret, cfg.Tracking.BaseURL, cfg.Tracking.TTL),
		c.Sink,
		cfg.Notification,
	)

	// --- Handlers ---
	c.MatchHandlers = matchapi.NewMatchHandlers(c.MatchService)
	c.NotificationHandlers = notificationapi.NewNotificationHandlers(c.Dispatcher, c.Queue)

	return nil
}

// newOracle returns nil for provider none, every score then comes from the
// heuristic fallback
func newOracle(ctx context.Context, cfg config.OracleConfig) (matching.Oracle, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		logx.Infof("Scoring oracle: OpenAI %s", cfg.OpenAIModel)
		return openaioracle.New(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case config.ProviderGemini:
		logx.Infof("Scoring oracle: Gemini %s", cfg.GeminiModel)
		o, err := geminioracle.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini oracle: %w", err)
		}
		return o, nil
	}
	logx.Warn("No scoring oracle configured, using heuristic scores only")
	return nil, nil
}

func matchConfig(m config.MatchingConfig, export bool) matchsrv.Config {
	cfg := matchsrv.DefaultConfig()
	cfg.Batch.BatchSize = m.BatchSize
	cfg.Batch.Concurrency = m.Concurrency
	cfg.Batch.TopN = m.TopN
	cfg.Batch.MinScore = m.MinScore
	cfg.Batch.RecordHistory = m.RecordHistory
	cfg.LookbackDays = m.LookbackDays
	cfg.RecommendPoolSize = m.RecommendPoolSize
	cfg.RecommendLimit = m.RecommendLimit
	cfg.Preselect = m.Preselect
	cfg.ExportResults = export
	return cfg
}

// NewWorker builds the queue consumer for the dispatcher
func (c *Container) NewWorker() *worker.NotificationWorker {
	return worker.NewNotificationWorker(c.Dispatcher, c.Queue, c.Config.Queue.Workers, c.Sink)
}

// NewScheduler builds the cron scheduler over the matching and digest jobs
func (c *Container) NewScheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(c.Config.Schedule, c.MatchService, c.Dispatcher)
}

func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Warnf("Failed to close Redis: %v", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Warnf("Failed to close database: %v", err)
		}
	}
}
