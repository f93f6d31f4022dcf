package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"talad/internal/notify"
	"talad/internal/rental/repository"
	"talad/pkg/config"
	"talad/pkg/kafka"
	kafka_config "talad/pkg/kafka/config"
	kafka_middleware "talad/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Notifier service")

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	store := notify.NewMongoStore(cfg)
	interestRepo := repository.NewMongoInterestRepository(cfg)
	queueRepo := repository.NewMongoQueueRepository(cfg)
	emitter := notify.NewRedisEmitter(cfg.Client.Redis, cfg.Log)
	email := notify.NewLogEmailSender(cfg.Log)

	worker := notify.NewWorker(store, interestRepo, queueRepo, emitter, email, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kcfg,
		kcfg.NotificationTopic,
		kcfg.NotifierGroupID,
		kcfg.NotificationDLQTopic,
		worker.Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Notifier consuming",
		"topic", kcfg.NotificationTopic,
		"group_id", kcfg.NotifierGroupID,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}
