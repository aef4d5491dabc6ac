package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-saga-orders/internal/config"
	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/projector"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("order-projector")

	logger, err := logx.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	p := &projector.StatusProjector{
		RDB:      rdb,
		Cache:    redisx.StatusCache{RDB: rdb, TTL: redisx.TTLStatusCache},
		Consumer: cfg.ProjectorGroup,
		Log:      logger,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.TopicOrderLifecycle, cfg.ProjectorWorkers, logger)

	logger.Info("projector started",
		zap.String("group", cfg.ProjectorGroup),
		zap.String("topic", orders.TopicOrderLifecycle),
		zap.Int("workers", cfg.ProjectorWorkers))
	if err := cons.Start(ctx, p.Handle); err != nil && ctx.Err() == nil {
		logger.Fatal("consumer exit", zap.Error(err))
	}
	logger.Info("projector stopped")
}
