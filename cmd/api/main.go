package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/gateway"
	"github.com/ariefcatur/go-saga-orders/internal/httpx"
	"github.com/ariefcatur/go-saga-orders/internal/idempotency"
	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/observability"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("order-api")

	logger, err := logx.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("order api exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 1024, logger)
	prod.Start(ctx)

	repo := &orders.Repo{DB: db}
	pay, stock := gateway.Ports(cfg, db, logger)
	orchestrator := saga.New(repo, pay, stock,
		saga.WithPublisher(&kafkax.EventPublisher{Producer: prod, Service: cfg.ServiceName}),
		saga.WithLogger(logger.Named("saga")),
	)
	guard := &idempotency.Guard{
		Orders:   repo,
		Saga:     orchestrator,
		Claims:   redisx.Claims{RDB: rdb},
		ClaimTTL: redisx.TTLIdempotency,
		Log:      logger.Named("idempotency"),
	}

	router := httpx.NewRouter(logger)
	oh := &httpx.OrdersHandler{
		Orders: guard,
		Finder: repo,
		Cache:  redisx.StatusCache{RDB: rdb, TTL: redisx.TTLStatusCache},
		Log:    logger,
	}
	oh.Register(router)
	srv := httpx.NewServer(cfg.HTTPAddr, httpx.Handler(router, cfg.ServiceName))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpx.Serve(gctx, srv, logger) })
	if cfg.SweepInterval > 0 {
		sweeper := &saga.Sweeper{
			Finder:    repo,
			Saga:      orchestrator,
			OlderThan: cfg.StaleAfter,
			Batch:     cfg.SweepBatch,
			Log:       logger.Named("sweeper"),
		}
		g.Go(func() error { return sweeper.Run(gctx, cfg.SweepInterval) })
	}
	err = g.Wait()

	logger.Info("shutting down...")
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
	return err
}
