package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quitpath/internal/api"
	"quitpath/internal/cache"
	"quitpath/internal/config"
	"quitpath/internal/database"
	"quitpath/internal/handler"
	"quitpath/internal/logger"
	"quitpath/internal/queue"
	"quitpath/internal/redis"
	"quitpath/internal/repository"
	"quitpath/internal/service"
	"quitpath/internal/session"
	transport "quitpath/internal/transport/http"
	"quitpath/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	// 2. Backing services
	rc, err := redis.NewClient(cfg.RedisURL, zl)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Services
	apiClient := api.NewClient(api.ClientConfig{
		Endpoint: cfg.GraphQLEndpoint,
		Timeout:  cfg.GraphQLTimeout,
	}, zl)

	forests := cache.NewForestStore(rc.Client, cfg.CommentCacheTTL, zl)
	publisher := queue.NewPublisher(rc.Client, zl)

	commentService := service.NewCommentService(apiClient, forests, publisher, service.CommentServiceConfig{
		PageSize: cfg.CommentPageSize,
		MaxPages: cfg.MaxCommentPages,
	}, zl)
	likeService := service.NewLikeService(apiClient, zl)
	chatService := service.NewChatService(apiClient)
	paymentService := service.NewPaymentService(apiClient, cfg.PaymentPollInterval, cfg.PaymentPollTimeout, zl)
	authService := service.NewAuthService(apiClient, zl)
	notificationService := service.NewNotificationService(
		repository.NewDeviceTokenRepository(db),
		repository.NewNotificationRepository(db),
		service.NewExpoPushClient(cfg.ExpoPushURL, zl),
		zl,
	)

	// 4. Notification worker
	workerCfg := worker.DefaultManagerConfig()
	workerCfg.WorkerCount = cfg.WorkerCount
	if host, err := os.Hostname(); err == nil {
		workerCfg.ConsumerName = host
	}
	manager := worker.NewManager(
		queue.NewConsumer(rc.Client, zl),
		worker.NewHandler(notificationService, notificationService, zl),
		workerCfg,
		zl,
	)

	// 5. HTTP
	checks := map[string]transport.Pinger{
		"redis":    rc,
		"postgres": transport.PingFunc(db.PingContext),
	}
	router := transport.NewRouter(transport.RouterConfig{
		AuthHandler:         handler.NewAuthHandler(authService, zl),
		CommentHandler:      handler.NewCommentHandler(commentService, zl),
		LikeHandler:         handler.NewLikeHandler(likeService, zl),
		ChatHandler:         handler.NewChatHandler(chatService, zl),
		PaymentHandler:      handler.NewPaymentHandler(paymentService, zl),
		DeviceHandler:       handler.NewDeviceHandler(notificationService, zl),
		NotificationHandler: handler.NewNotificationHandler(notificationService, zl),
		Checks:              checks,
		Verifier:            session.NewVerifier(cfg.JWTSecret),
		Logger:              zl,
	})
	server := transport.NewServer(cfg.ServerPort, router, zl)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	err = g.Wait()
	zl.Info("stopped", zap.Error(err))
	return err
}
