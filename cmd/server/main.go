package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	supportapp "github.com/supportdesk/backend/internal/application/support"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/infrastructure/cache"
	"github.com/supportdesk/backend/internal/infrastructure/config"
	"github.com/supportdesk/backend/internal/infrastructure/event"
	"github.com/supportdesk/backend/internal/infrastructure/logger"
	yandex "github.com/supportdesk/backend/internal/infrastructure/marketplace"
	"github.com/supportdesk/backend/internal/infrastructure/persistence"
	"github.com/supportdesk/backend/internal/infrastructure/scheduler"
	"github.com/supportdesk/backend/internal/interfaces/http/handler"
	"github.com/supportdesk/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting support desk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with a zap-backed gorm logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Dedup store backs the invocation, ticket and message guards
	var dedupStore shared.DedupStore
	if cfg.Dedup.Backend == "redis" {
		redisStore, err := cache.NewRedisDedupStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		dedupStore = redisStore
		log.Info("Dedup store using redis", zap.String("host", cfg.Redis.Host))
	} else {
		dedupStore = cache.NewInMemoryDedupStore()
		log.Info("Dedup store using process memory")
	}
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing dedup store", zap.Error(err))
		}
	}()
	deduplicator := cache.NewStoreDeduplicator(dedupStore)

	dedupCfg := shared.DefaultDedupConfig()
	dedupCfg.QuestionInvocationTTL = cfg.Scheduler.QuestionPollInterval

	// Marketplace partner API adapter
	marketCfg := yandex.NewYandexConfig()
	marketCfg.BaseURL = cfg.Marketplace.BaseURL
	marketCfg.Timeout = cfg.Marketplace.Timeout
	marketCfg.MaxPageSize = cfg.Marketplace.MaxPageSize
	marketClient, err := yandex.NewYandexAdapter(marketCfg)
	if err != nil {
		log.Fatal("Failed to initialize marketplace client", zap.Error(err))
	}

	// Initialize repositories
	ticketRepo := persistence.NewGormTicketRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)
	directoryRepo := persistence.NewGormDirectoryRepository(db.DB)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// The reply handlers enqueue their retries on the scheduler, and the
	// scheduler's executor routes jobs back to the handlers. The scheduler
	// is created first and its executor wired once the handlers exist.
	syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
		Workers:    cfg.Scheduler.Workers,
		QueueSize:  cfg.Scheduler.QueueSize,
		JobTimeout: cfg.Scheduler.JobTimeout,
		MaxRetries: cfg.Scheduler.MaxRetries,
		RetryDelay: cfg.Scheduler.RetryDelay,
	}, nil, log)
	if err != nil {
		log.Fatal("Failed to initialize scheduler", zap.Error(err))
	}

	// Ingestion handlers
	chatSync := supportapp.NewChatSyncHandler(
		marketClient, credentialRepo, ticketRepo, deduplicator, dedupCfg,
		directoryRepo, eventBus, log,
	)
	reviewSync := supportapp.NewReviewSyncHandler(
		marketClient, credentialRepo, ticketRepo, deduplicator, dedupCfg,
		cfg.Scheduler.PollInterval, eventBus, log,
	)
	questionSync := supportapp.NewQuestionSyncHandler(
		marketClient, credentialRepo, ticketRepo, deduplicator, dedupCfg,
		directoryRepo, eventBus, log,
	)

	// Outbound reply handlers
	chatReply := supportapp.NewChatReplyHandler(
		marketClient, credentialRepo, ticketRepo, deduplicator, dedupCfg,
		syncScheduler, log,
	)
	reviewReply := supportapp.NewReviewReplyHandler(
		marketClient, credentialRepo, ticketRepo, deduplicator, dedupCfg,
		syncScheduler, log,
	)
	questionReply := supportapp.NewQuestionReplyHandler(
		marketClient, credentialRepo, ticketRepo, deduplicator, dedupCfg,
		syncScheduler, log,
	)

	syncScheduler.SetExecutor(scheduler.NewHandlerExecutor(
		chatSync, reviewSync, questionSync,
		chatReply, reviewReply, questionReply,
	))

	// Event handlers: closing a saved ticket with a pending local reply
	// dispatches it, and eligible reviews get an automatic response
	autoReply := supportapp.NewAutoReplyHandler(ticketRepo, eventBus, log)
	eventBus.Subscribe(autoReply)
	eventBus.Subscribe(chatReply)
	eventBus.Subscribe(reviewReply)
	eventBus.Subscribe(questionReply)

	triggerCfg := scheduler.DefaultSyncCronTriggerConfig()
	triggerCfg.PollInterval = cfg.Scheduler.PollInterval
	cronTrigger := scheduler.NewSyncCronTrigger(triggerCfg, syncScheduler, credentialRepo, log)

	if cfg.Scheduler.Enabled {
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		if err := cronTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cronTrigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync trigger", zap.Error(err))
			}
		}()

		log.Info("Sync scheduler started",
			zap.Int("workers", cfg.Scheduler.Workers),
			zap.Duration("poll_interval", cfg.Scheduler.PollInterval),
		)
	} else {
		log.Warn("Sync scheduler disabled, tickets only ingest via manual triggers")
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r := router.NewRouter(engine, handler.NewSystemHandler(db))
	r.Register(handler.NewSyncHandler(cronTrigger, syncScheduler))
	r.Setup(log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
