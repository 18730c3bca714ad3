package cmd

import (
	"context"
	"fmt"
	"log"

	"roster-desk/internal/data/repository"
	"roster-desk/internal/push"
	"roster-desk/internal/usecase"
	"roster-desk/internal/wire"
	"roster-desk/pkg/database"
	"roster-desk/pkg/notify"
	"roster-desk/pkg/payment"
	"roster-desk/pkg/pricing"
	"roster-desk/pkg/queue"
	"roster-desk/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func runServer(ctx context.Context) error {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(ctx, config.Database)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)
	hub := push.NewHub(logger)

	deps := usecase.Deps{
		Pricing:   pricing.NewClient(config.Pricing, logger),
		Provider:  payment.NewStripeProvider(config.Stripe, logger),
		Publisher: push.NewLocalPublisher(hub),
	}

	if notifier := notify.NewResendNotifier(config.Resend, logger); notifier != nil {
		deps.Notifier = notifier
	} else {
		logger.Info("Receipt emails disabled")
	}

	var queueClient *queue.Client
	if config.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("Failed to connect to redis", zap.Error(err))
			return err
		}

		redisPub := push.NewRedisPublisher(rdb, hub, logger)
		go func() {
			if err := redisPub.Run(ctx); err != nil {
				logger.Error("Push relay stopped", zap.Error(err))
			}
		}()
		deps.Publisher = redisPub

		queueClient = queue.NewClient(config.Redis, logger)
		defer queueClient.Close()
		deps.Queue = queueClient

		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	} else {
		logger.Warn("REDIS_ADDR not set; push is local and payments reconcile inline")
	}

	// Wire all dependencies
	app := wire.Wiring(repos, deps, hub, config, logger)

	if queueClient != nil {
		worker := NewReconcileWorker(config.Redis, app.Service.Payment, logger)
		if err := worker.Start(); err != nil {
			logger.Error("Failed to start reconcile worker", zap.Error(err))
			return err
		}
		defer worker.Shutdown()
	}

	if err := APIServer(ctx, app.Router, config.App.Port, logger, hub.Close); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	return nil
}
