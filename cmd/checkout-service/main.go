package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kryslink/mediconnect-orders/pkg/config"
	"github.com/kryslink/mediconnect-orders/pkg/idempotency"
	"github.com/kryslink/mediconnect-orders/pkg/logging"
	"github.com/kryslink/mediconnect-orders/pkg/outbox"
	"github.com/kryslink/mediconnect-orders/pkg/reference"
	"github.com/kryslink/mediconnect-orders/pkg/shutdown"
	"github.com/kryslink/mediconnect-orders/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/kryslink/mediconnect-orders/internal/checkout/application"
	checkouthttp "github.com/kryslink/mediconnect-orders/internal/checkout/infrastructure/http"
	checkoutkafka "github.com/kryslink/mediconnect-orders/internal/checkout/infrastructure/kafka"
	checkoutpg "github.com/kryslink/mediconnect-orders/internal/checkout/infrastructure/postgres"
)

func main() {
	cfg, err := config.LoadCheckout()
	if err != nil {
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "checkout-service", cfg.OTLPEndpoint, log)
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
	sessions := idempotency.NewSessions(redisDB)

	writer := checkoutkafka.NewWriter([]string{cfg.KafkaAddr})
	defer writer.Close()

	repo := checkoutpg.NewRepository(log, pool)
	store := outbox.NewPGStore(log, pool, "order")
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
	relay := outbox.NewRelay(log, store, dispatch, "checkout-service-relay")

	svc := application.NewService(repo, reference.NewGenerator(), decimal.NewFromFloat(cfg.TaxRate))
	auth := checkouthttp.NewAuth(log, sessions)
	handler := checkouthttp.NewHandler(log, svc, auth)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("checkout-service shutdown complete")
}
