package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kentj-backend/internal/api"
	"kentj-backend/internal/auth"
	"kentj-backend/internal/config"
	"kentj-backend/internal/handlers"
	"kentj-backend/internal/integrations"
	"kentj-backend/internal/logger"
	"kentj-backend/internal/services"
	"kentj-backend/internal/store"
	"kentj-backend/internal/store/memory"
	"kentj-backend/internal/store/postgres"
	redisstore "kentj-backend/internal/store/redis"
	"kentj-backend/internal/store/sqlite"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.IsProduction(), cfg.LogFilePath)
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)
	zlog.Info("starting Kent J. backend",
		zap.String("env", cfg.Environment),
		zap.String("version", cfg.App.Version),
		zap.String("store", cfg.Store.Driver),
		zap.String("token_mode", cfg.Auth.TokenMode),
	)

	// 2. Open the conversation store
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	kv, err := openStore(storeCtx, cfg.Store, zlog)
	storeCancel()
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer kv.Close()

	// 3. Auth
	creds, err := auth.NewStaticCredentials(auth.DemoUsers, zlog)
	if err != nil {
		zlog.Fatal("failed to load credentials", zap.Error(err))
	}
	var tokens auth.TokenCodec
	switch cfg.Auth.TokenMode {
	case config.TokenModeJWT:
		tokens = auth.NewJWTCodec(cfg.Auth.JWTSecret, cfg.Auth.SessionTimeout, "kentj-backend", nil)
	default:
		tokens = auth.NewDemoCodec(cfg.Auth.SessionTimeout, nil)
	}

	// 4. Workflow integrations
	httpClient := &http.Client{}
	eventsClient := integrations.NewWebhookClient(cfg.Workflow.URL, cfg.Workflow.Timeout, httpClient)
	chatClient := integrations.NewWebhookClient(cfg.Chat.WebhookURL, cfg.Chat.Timeout, httpClient)
	problemsClient := integrations.NewWebhookClient(cfg.Problems.WebhookURL, cfg.Problems.Timeout, httpClient)

	var queueOpts []integrations.QueueOption
	if cfg.DeadLetter.NATSURL != "" {
		sink, err := integrations.NewNATSDeadLetterSink(cfg.DeadLetter.NATSURL, cfg.DeadLetter.Subject)
		if err != nil {
			zlog.Fatal("failed to connect dead-letter sink", zap.Error(err))
		}
		defer sink.Close()
		queueOpts = append(queueOpts, integrations.WithDeadLetterSink(sink))
		zlog.Info("dead-letter sink connected", zap.String("subject", cfg.DeadLetter.Subject))
	}

	queue := integrations.NewDeliveryQueue(integrations.QueueConfig{
		Enabled:       cfg.Workflow.Enabled,
		BatchSize:     cfg.Workflow.BatchSize,
		RetryAttempts: cfg.Workflow.RetryAttempts,
		MaxRequeues:   cfg.Workflow.MaxRequeues,
		Version:       cfg.App.Version,
	}, eventsClient, zlog, queueOpts...)

	registry := integrations.NewRegistry(zlog)
	registry.Register(integrations.WorkflowEvents, queue)
	registry.Register(integrations.WorkflowChat, integrations.NewProbe(chatClient, cfg.App.Version))
	registry.Register(integrations.WorkflowProblems, integrations.NewProbe(problemsClient, cfg.App.Version))

	// 5. Services
	authService := services.NewAuthService(creds, tokens, kv, cfg.Auth, zlog)
	conversationService := services.NewConversationService(kv, cfg.Store.HistoryLimit, zlog)
	chatService := services.NewChatService(chatClient, queue, conversationService, authService, cfg.Chat, cfg.App, zlog)
	problemsService := services.NewProblemsService(problemsClient, cfg.Problems, cfg.App.Version, zlog)

	// 6. Router
	router := api.NewRouter(api.RouterDependencies{
		AuthHandler:        handlers.NewAuthHandler(authService, zlog),
		ChatHandler:        handlers.NewChatHandlers(chatService, zlog),
		IntegrationHandler: handlers.NewIntegrationHandler(queue, registry, cfg.Workflow, zlog),
		ProblemsHandler:    handlers.NewProblemsHandler(problemsService, zlog),
		SessionHandler:     handlers.NewSessionHandler(conversationService, zlog),
		HealthHandler:      handlers.NewHealthHandler(cfg.App.Version, queue),
		Authenticator:      authService,
		Config:             cfg,
		Logger:             zlog,
	})

	// 7. Configure and Start HTTP Server
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Chat replies and threshold flushes can both run inside one request.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("could not listen", zap.String("port", cfg.HTTPPort), zap.Error(err))
		}
	}()

	<-stopChan
	zlog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("server graceful shutdown failed", zap.Error(err))
	}

	// Events are only held in memory; try to deliver what is left.
	if err := queue.Drain(shutdownCtx); err != nil {
		zlog.Warn("delivery queue not fully drained", zap.Error(err))
	}

	zlog.Info("server shutdown complete")
}

func openStore(ctx context.Context, cfg config.StoreConfig, zlog *zap.Logger) (store.KVStore, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		return memory.New(), nil
	case config.StoreDriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.StoreDriverPostgres:
		return postgres.Connect(ctx, cfg.DatabaseURL, zlog)
	case config.StoreDriverRedis:
		return redisstore.New(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
