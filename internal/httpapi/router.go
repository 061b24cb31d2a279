package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"media_gateway/internal/artifacts"
	"media_gateway/internal/config"
	"media_gateway/internal/generation"
	"media_gateway/internal/models"
	"media_gateway/internal/providers"
	"media_gateway/internal/queue"
	"media_gateway/internal/storage"
	"media_gateway/internal/utils"
)

// Generator drives the generation lifecycle. Satisfied by
// generation.Service.
type Generator interface {
	Generate(ctx context.Context, userID uuid.UUID, req *models.GenerateRequest) (*models.GenerationTask, error)
	Poll(ctx context.Context, taskID uuid.UUID) (*models.GenerationTask, error)
}

// TaskReader reads stored task rows. Satisfied by storage.TaskRepository.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GenerationTask, error)
}

// Server holds the handler dependencies.
type Server struct {
	generator Generator
	tasks     TaskReader
	db        *storage.DB
	logger    zerolog.Logger
}

// NewServer creates a handler server over explicit dependencies. Used
// directly in tests; production wiring goes through NewRouter.
func NewServer(generator Generator, tasks TaskReader, db *storage.DB, logger zerolog.Logger) *Server {
	return &Server{
		generator: generator,
		tasks:     tasks,
		db:        db,
		logger:    logger.With().Str("component", "httpapi").Logger(),
	}
}

// Routes registers the server's routes on mux, wrapping the API in the
// user JWT middleware.
func (s *Server) Routes(mux *http.ServeMux, jwtSecret []byte) {
	authed := UserJWTMiddleware(jwtSecret)

	mux.Handle("POST /v1/generations", authed(http.HandlerFunc(s.handleGenerate)))
	mux.Handle("GET /v1/generations", authed(http.HandlerFunc(s.handleListTasks)))
	mux.Handle("GET /v1/generations/{id}", authed(http.HandlerFunc(s.handleGetTask)))
	mux.Handle("POST /v1/generations/{id}/poll", authed(http.HandlerFunc(s.handlePollTask)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Health(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Dependencies aggregates everything NewRouter wires up, so main can shut
// it down in order.
type Dependencies struct {
	DB          *storage.DB
	Redis       *redis.Client
	AuditWorker *storage.CallRecordWorker
	Service     *generation.Service
}

// Close releases the wired resources.
func (d *Dependencies) Close() {
	if d.AuditWorker != nil {
		_ = d.AuditWorker.Stop()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*http.ServeMux, *Dependencies, error) {
	db, err := storage.NewDB(storage.DBConfig{
		DSN:               cfg.Database.URL,
		MaxOpenConns:      cfg.Database.MaxOpenConns,
		MaxIdleConns:      cfg.Database.MaxIdleConns,
		ConnMaxLifetime:   cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:   cfg.Database.ConnMaxIdleTime,
		ProviderCacheSize: cfg.Database.ProviderCacheSize,
		ProviderCacheTTL:  cfg.Database.ProviderCacheTTL,
		RuleCacheSize:     cfg.Database.RuleCacheSize,
		RuleCacheTTL:      cfg.Database.RuleCacheTTL,
		EncryptionKey:     cfg.Database.EncryptionKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	useRedis := redisClient.Ping(ctx).Err() == nil
	if useRedis {
		if err := storage.StartInvalidationListener(ctx, db, redisClient, logger); err != nil {
			logger.Warn().Err(err).Msg("config invalidation listener unavailable")
		}
	} else {
		logger.Warn().Str("address", cfg.Redis.Address).Msg("redis unreachable, using in-memory audit queue")
	}

	// Audit queue for provider call records.
	auditCfg := queue.DefaultConfig(queue.CallRecordQueueName)
	auditCfg.UseRedis = useRedis && cfg.Audit.UseRedis
	auditCfg.BatchSize = cfg.Audit.BatchSize
	auditCfg.BatchTimeout = cfg.Audit.BatchTimeout
	auditCfg.MaxRetries = cfg.Audit.MaxRetries
	auditCfg.RetryBackoff = cfg.Audit.RetryBackoff

	var auditQueue queue.Queue
	var auditDLQ queue.DeadLetterQueue
	if auditCfg.UseRedis {
		auditCfg.RedisAddr = cfg.Redis.Address
		auditCfg.RedisPassword = cfg.Redis.Password
		auditCfg.RedisDB = cfg.Redis.DB
		auditQueue, err = queue.NewRedisQueue(auditCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create audit queue: %w", err)
		}
		auditDLQ, err = queue.NewRedisDeadLetterQueue(auditCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create audit DLQ: %w", err)
		}
	} else {
		auditQueue = queue.NewMemoryQueue(auditCfg)
		auditDLQ = queue.NewMemoryDeadLetterQueue()
	}

	auditWorker := storage.NewCallRecordWorker(auditQueue, auditDLQ, db, auditCfg, logger)
	auditWorker.Start(ctx)

	store, err := artifacts.NewS3Store(ctx, artifacts.S3Config{
		Bucket:          cfg.Artifacts.S3Bucket,
		Region:          cfg.Artifacts.S3Region,
		Endpoint:        cfg.Artifacts.S3Endpoint,
		AccessKeyID:     cfg.Artifacts.S3AccessKeyID,
		SecretKey:       cfg.Artifacts.S3SecretKey,
		UsePathStyle:    cfg.Artifacts.S3UsePathStyle,
		PublicBaseURL:   cfg.Artifacts.PublicBaseURL,
		InternalHosts:   cfg.Artifacts.InternalHosts,
		DownloadTimeout: cfg.Artifacts.DownloadTimeout,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	registry := providers.NewRegistry(db.NewProviderRepository(), logger)
	client := providers.NewClient(providers.ClientConfig{
		SubmitTimeout: cfg.Provider.SubmitTimeout,
		FetchTimeout:  cfg.Provider.FetchTimeout,
	}, logger)

	taskRepo := db.NewTaskRepository()
	service := generation.NewService(
		registry,
		db.NewMappingRuleRepository(),
		db.NewLedgerRepository(),
		taskRepo,
		client,
		store,
		auditWorker,
		logger,
	)

	deps := &Dependencies{
		DB:          db,
		Redis:       redisClient,
		AuditWorker: auditWorker,
		Service:     service,
	}

	mux := http.NewServeMux()
	server := NewServer(service, taskRepo, db, logger)
	server.Routes(mux, cfg.JWTSecret)

	return mux, deps, nil
}
