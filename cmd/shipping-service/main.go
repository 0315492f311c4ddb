package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kryslink/mediconnect-orders/pkg/config"
	"github.com/kryslink/mediconnect-orders/pkg/idempotency"
	"github.com/kryslink/mediconnect-orders/pkg/logging"
	"github.com/kryslink/mediconnect-orders/pkg/outbox"
	"github.com/kryslink/mediconnect-orders/pkg/shutdown"
	"github.com/kryslink/mediconnect-orders/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/kryslink/mediconnect-orders/internal/shipping/application"
	shippingkafka "github.com/kryslink/mediconnect-orders/internal/shipping/infrastructure/kafka"
	shippingpg "github.com/kryslink/mediconnect-orders/internal/shipping/infrastructure/postgres"
)

func main() {
	cfg, err := config.LoadShipping()
	if err != nil {
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "shipping-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisDB := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	idem := idempotency.NewStore(redisDB, 10*time.Minute)

	repo := shippingpg.NewRepository(log, pool)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaAddr),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	dispatch := outbox.NewDispatcher(log, writer, cfg.OutTopic)
	store := outbox.NewPGStore(log, pool, "shipment")
	relay := outbox.NewRelay(log, store, dispatch, "shipping-service-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped", "err", err)
		}
	}()

	svc := application.NewService(repo)
	consumer := shippingkafka.NewConsumer(log, []string{cfg.KafkaAddr}, cfg.InTopic, "shipping-service", svc, idem)

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shipping-service shutdown")
}
