package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/ai"
	"github.com/CHUDOAL/Valve-sait/internal/cache"
	"github.com/CHUDOAL/Valve-sait/internal/chat"
	"github.com/CHUDOAL/Valve-sait/internal/config"
	"github.com/CHUDOAL/Valve-sait/internal/database"
	"github.com/CHUDOAL/Valve-sait/internal/handlers"
	"github.com/CHUDOAL/Valve-sait/internal/hub"
	"github.com/CHUDOAL/Valve-sait/internal/jobs"
	"github.com/CHUDOAL/Valve-sait/internal/log"
	"github.com/CHUDOAL/Valve-sait/internal/media"
	"github.com/CHUDOAL/Valve-sait/internal/ratelimit"
	"github.com/CHUDOAL/Valve-sait/internal/relay"
	"github.com/CHUDOAL/Valve-sait/internal/repository"
	"github.com/CHUDOAL/Valve-sait/internal/repository/memory"
	"github.com/CHUDOAL/Valve-sait/internal/server"
	"github.com/CHUDOAL/Valve-sait/internal/service"
	"github.com/CHUDOAL/Valve-sait/internal/storage"
	"github.com/CHUDOAL/Valve-sait/internal/telemetry"
)

type stores struct {
	users    service.UserStore
	sessions service.SessionStore
	tasks    service.TaskStore
	messages chat.MessageStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, "portal", cfg.Telemetry, logger)

	var checks []handlers.HealthCheck

	var (
		dbPool *pgxpool.Pool
		st     stores
	)
	if cfg.Postgres.DSN != "" {
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		st = stores{
			users:    repository.NewUserRepository(dbPool),
			sessions: repository.NewSessionRepository(dbPool),
			tasks:    repository.NewTaskRepository(dbPool),
			messages: repository.NewMessageRepository(dbPool),
		}
		checks = append(checks, handlers.HealthCheck{Name: "database", Ping: dbPool.Ping})
	} else {
		logger.Warn().Msg("no postgres dsn configured, using in-memory stores")
		mem := memory.New()
		st = stores{users: mem.Users, sessions: mem.Sessions, tasks: mem.Tasks, messages: mem.Messages}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		checks = append(checks, handlers.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	backend := newStorage(ctx, cfg.Storage, logger)
	uploader := media.NewUploader(backend, cfg.Storage.PublicPrefix, cfg.Chat.MaxUploadBytes)

	chatHub := hub.New(logger)
	var (
		broadcaster relay.Broadcaster = relay.NewLocal(chatHub)
		limiter     ratelimit.Limiter = ratelimit.Unlimited{}
	)
	if redisClient != nil {
		stream := relay.NewStream(redisClient, cfg.Redis.Stream, cfg.Redis.MaxLen, chatHub, logger)
		go func() {
			if err := stream.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("broadcast relay stopped")
			}
		}()
		broadcaster = stream
		if cfg.AI.RateLimitPerMinute > 0 {
			limiter = ratelimit.NewWindow(redisClient, "ratelimit:ai", cfg.AI.RateLimitPerMinute, time.Minute)
		}
	}

	if err := service.EnsureManager(ctx, st.users, cfg.Seed, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed manager")
	}
	assistant, err := service.EnsureAssistant(ctx, st.users, cfg.Chat.AssistantName, cfg.Chat.AssistantEmail)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed assistant identity")
	}

	authService := service.NewAuthService(st.users, st.sessions, cfg.Security, logger)
	chatService := chat.NewService(chat.Deps{
		Messages:    st.messages,
		Users:       st.users,
		Attachments: uploader,
		Broadcaster: broadcaster,
		Model:       newModel(cfg.AI, logger),
		Limiter:     limiter,
		Assistant:   assistant,
	}, chat.Config{
		HistoryLimit:     cfg.Chat.HistoryLimit,
		ContextFetch:     cfg.Chat.ContextFetch,
		ContextWindow:    cfg.Chat.ContextWindow,
		BroadcastTimeout: cfg.Chat.BroadcastTimeout,
		SystemPrompt:     cfg.AI.SystemPrompt,
	}, logger)

	handlerSet := handlers.NewHandlerSet(logger, handlers.Deps{
		Config:   cfg,
		Auth:     authService,
		Profiles: service.NewProfileService(st.users, uploader, logger),
		Tasks:    service.NewTaskService(st.tasks, st.users),
		Chat:     chatService,
		Hub:      chatHub,
		Media:    backend,
		Checks:   checks,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(authService, cfg.Jobs.SessionSweep, cfg.Jobs.SessionGrace, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	chatHub.CloseAll()
	scheduler.Stop(shutdownCtx)

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	if dbPool != nil {
		dbPool.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}

func newStorage(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) storage.Backend {
	if cfg.Driver == "s3" {
		objectStore, err := storage.NewObjectStore(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		return objectStore
	}

	local, err := storage.NewLocalStore(cfg.LocalRoot)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init local storage")
	}
	return local
}

// newModel returns nil without an API key, which turns AI turns into
// ServiceUnavailable.
func newModel(cfg config.AIConfig, logger zerolog.Logger) ai.Model {
	if cfg.APIKey == "" {
		logger.Warn().Msg("no AI api key configured, AI chat disabled")
		return nil
	}

	opts := ai.OpenAIOptions{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	models := []ai.Model{ai.NewOpenAIModel(cfg.PrimaryModel, opts)}
	if cfg.FallbackModel != "" && cfg.FallbackModel != cfg.PrimaryModel {
		models = append(models, ai.NewOpenAIModel(cfg.FallbackModel, opts))
	}
	return ai.NewFailover(cfg.Timeout, logger, models...)
}
