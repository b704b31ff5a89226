package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stockledger/inventory-service/internal/eventstore"
	"github.com/stockledger/inventory-service/internal/repository"
	"github.com/stockledger/inventory-service/internal/service"
	transport "github.com/stockledger/inventory-service/internal/transport/kafka"
	"github.com/stockledger/inventory-service/pkg/config"
	"github.com/stockledger/inventory-service/pkg/db"
	"github.com/stockledger/inventory-service/pkg/kafka"
	outboxRepository "github.com/stockledger/inventory-service/pkg/outbox/repository"
	"github.com/stockledger/inventory-service/pkg/outbox/worker"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"github.com/stockledger/inventory-service/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "inventory-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: cfg.LogLevel,
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	store := eventstore.NewPostgresStore(pool, logger)
	index := repository.NewReservationIndex(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)

	resolver := service.StaticWarehouseResolver{WarehouseID: cfg.Inventory.DefaultWarehouse}

	inventoryService := service.NewInventoryService(
		pool,
		store,
		index,
		outboxRepo,
		resolver,
		logger,
		cfg.Kafka.InventoryTopic,
	)
	inventoryService = service.NewCachedInventoryService(inventoryService, redisClient, cfg.Inventory.CacheTTL)

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, producer, logger)
	go outboxProcessor.Start(ctx)

	consumer := transport.NewConsumer(inventoryService, pool, logger, cfg.Kafka)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			tracelog.Error(ctx, logger, "Consumer stopped", zap.Error(err))
			stop()
		}
	}()

	tracelog.Info(ctx, logger, "Inventory service started",
		zap.String("default_warehouse", cfg.Inventory.DefaultWarehouse),
	)

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	tracelog.Info(shutdownCtx, logger, "Shutting down inventory service")

	if err := producer.Close(); err != nil {
		tracelog.Warn(shutdownCtx, logger, "Failed to close producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		tracelog.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
