package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/watchstore/pkg/outbox"
	"github.com/dmehra2102/watchstore/pkg/tracing"
)

type Evictor interface {
	Evict(ctx context.Context, ids ...uuid.UUID) error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer evicts cached products whose stock changed, as reported by order
// events.
type Consumer struct {
	log     *slog.Logger
	reader  MessageReader
	evictor Evictor
	idem    Deduper
	tracer  trace.Tracer

	attempts int
	backoff  time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader MessageReader, evictor Evictor, idem Deduper) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		evictor: evictor,
		idem:    idem,
		tracer:  otel.Tracer("catalog-cache-consumer"),

		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handleWithRetry(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// handleWithRetry gives a failed eviction a few more tries before the message
// is committed. The entry then lives until its cache TTL expires.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) {
	for attempt := 1; ; attempt++ {
		err := c.Handle(ctx, msg)
		if err == nil {
			return
		}
		if attempt >= c.attempts {
			c.log.Error("giving up on cache eviction", "offset", msg.Offset, "attempts", attempt, "err", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

// stockEvent is the subset of order events this consumer needs.
type stockEvent struct {
	Items []struct {
		ProductID uuid.UUID `json:"productId"`
	} `json:"items"`
}

// Handle processes one message. Undecodable and duplicate messages are skipped.
// A failed eviction releases the dedupe claim so the message can be handled again.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "EvictProductCache", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	eventType := tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)
	var ev stockEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.ErrorContext(msgCtx, "unmarshal failed", "type", eventType, "err", err)
		return nil
	}
	if len(ev.Items) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(ev.Items))
	for _, it := range ev.Items {
		ids = append(ids, it.ProductID)
	}
	if err := c.evictor.Evict(msgCtx, ids...); err != nil {
		span.RecordError(err)
		c.log.ErrorContext(msgCtx, "cache eviction failed", "type", eventType, "err", err)
		if rerr := c.idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
			c.log.ErrorContext(msgCtx, "idempotency release failed", "key", key, "err", rerr)
		}
		return err
	}
	c.log.InfoContext(msgCtx, "product cache evicted", "type", eventType, "products", len(ids))
	return nil
}
