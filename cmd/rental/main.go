package main

import (
	"talad/internal/notify"
	"talad/internal/rental/handler"
	"talad/internal/rental/repository"
	"talad/internal/rental/service"
	"talad/internal/rental/validator"
	"talad/pkg/app"
	"talad/pkg/config"
	"talad/pkg/contracts"
	"talad/pkg/kafka"
	kafka_config "talad/pkg/kafka/config"
	kafka_middleware "talad/pkg/kafka/middleware"
)

const ServiceName = "rental"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Rental service")

	dispatcher, closeDispatcher := initDispatcher(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(initHandlers(cfg, dispatcher))
	serverApp.OnShutdown(closeDispatcher)
	serverApp.Run()
}

func initDispatcher(cfg *config.Config) (notify.Dispatcher, func()) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka not configured, notifications disabled", "error", err)
		return notify.NoopDispatcher{}, func() {}
	}

	producer, err := kafka.NewProducer(kcfg, kcfg.NotificationTopic, kcfg.NotificationDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	return notify.NewKafkaDispatcher(producer, ServiceName, cfg.Log), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close notification producer", "error", err)
		}
	}
}

func initHandlers(cfg *config.Config, dispatcher notify.Dispatcher) contracts.Handler {
	bookingValidator := validator.NewBookingValidator(cfg.Log)

	lockRepo := repository.NewMongoLockRepository(cfg)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	queueRepo := repository.NewMongoQueueRepository(cfg)
	interestRepo := repository.NewMongoInterestRepository(cfg)
	auditRepo := repository.NewMongoAuditRepository(cfg)
	notificationStore := notify.NewMongoStore(cfg)

	processor := service.NewQueueProcessor(lockRepo, queueRepo, auditRepo, dispatcher, cfg)
	bookingService := service.NewBookingService(
		bookingRepo, lockRepo, queueRepo, auditRepo,
		bookingValidator, processor, dispatcher, cfg,
	)
	queueService := service.NewQueueService(queueRepo, lockRepo, dispatcher, cfg)
	verificationService := service.NewVerificationService(
		bookingRepo, lockRepo, queueRepo, auditRepo, dispatcher, cfg,
	)
	sweeperService := service.NewSweeperService(
		bookingRepo, lockRepo, queueRepo, auditRepo,
		processor, dispatcher, cfg,
	)
	lockService := service.NewLockService(lockRepo, auditRepo, bookingValidator, cfg)
	interestService := service.NewInterestService(interestRepo, cfg)

	jwtSecret := []byte(cfg.JWTSecret)
	cfg.Log.Info("Rental services initialized", "database", cfg.MongoDatabaseName)

	return handler.NewRegistry(
		handler.NewBookingHandler(bookingService, jwtSecret, cfg.Log),
		handler.NewQueueHandler(queueService, jwtSecret, cfg.Log),
		handler.NewLockHandler(lockService, jwtSecret, cfg.Log),
		handler.NewVerificationHandler(verificationService, jwtSecret, cfg.Log),
		handler.NewInterestHandler(interestService, jwtSecret, cfg.Log),
		handler.NewNotificationHandler(notificationStore, jwtSecret, cfg.Log),
		handler.NewSweepHandler(sweeperService, cfg.CronSecret, cfg.Log),
	)
}
