package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kryslink/mediconnect-orders/internal/checkout/domain"
	"github.com/kryslink/mediconnect-orders/internal/shipping/application"
	"github.com/kryslink/mediconnect-orders/pkg/idempotency"
	"github.com/kryslink/mediconnect-orders/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// messageReader is the slice of kafka.Reader the consume loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// dedupStore marks topic/partition/offset triples as seen.
type dedupStore interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

// Consumer tails order events and opens shipments for OrderCreated. Other
// event types on the topic are committed and skipped.
type Consumer struct {
	log    *slog.Logger
	reader messageReader
	svc    *application.Service
	idem   dedupStore
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("shipping-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if headerValue(msg.Headers, "event_type") != "OrderCreated" {
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderCreated")

		var event domain.OrderCreated
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.Error("unmarshal failed", "err", err)
			span.End()
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		headers := map[string]string{"source": "shipping-service"}
		traceparent := headerValue(msg.Headers, tracing.TraceparentHeader)

		if err := c.svc.Process(msgCtx, event.Reference, event.SupplierID, event.Region, headers, traceparent); err != nil {
			c.log.Error("shipment create failed", "reference", event.Reference, "err", err)
		} else {
			c.log.Info("shipment created", "reference", event.Reference)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
