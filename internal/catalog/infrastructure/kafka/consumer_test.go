package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/watchstore/pkg/outbox"
)

type fakeEvictor struct {
	evicted []uuid.UUID
	fails   int
	calls   int
}

func (e *fakeEvictor) Evict(_ context.Context, ids ...uuid.UUID) error {
	e.calls++
	if e.calls <= e.fails {
		return errors.New("redis timeout")
	}
	e.evicted = append(e.evicted, ids...)
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (d *fakeDeduper) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}

func (d *fakeDeduper) Seen(_ context.Context, key string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	was := d.seen[key]
	d.seen[key] = true
	return was, nil
}

func (d *fakeDeduper) Release(_ context.Context, key string) error {
	delete(d.seen, key)
	return nil
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func message(offset int64, body string) kafka.Message {
	return kafka.Message{
		Topic:   "order.events",
		Offset:  offset,
		Value:   []byte(body),
		Headers: []kafka.Header{{Key: outbox.EventTypeHeader, Value: []byte("OrderPlaced")}},
	}
}

func TestHandle(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, b := uuid.New(), uuid.New()
	body := fmt.Sprintf(`{"orderId":"x","items":[{"productId":%q,"quantity":1},{"productId":%q,"quantity":2}]}`, a, b)

	t.Run("evicts every product in the event", func(t *testing.T) {
		ev := &fakeEvictor{}
		c := NewConsumer(log, &fakeReader{}, ev, &fakeDeduper{seen: map[string]bool{}})

		assert.NoError(t, c.Handle(context.Background(), message(1, body)))
		assert.Equal(t, []uuid.UUID{a, b}, ev.evicted)
	})

	t.Run("skips redelivered offsets", func(t *testing.T) {
		ev := &fakeEvictor{}
		c := NewConsumer(log, &fakeReader{}, ev, &fakeDeduper{seen: map[string]bool{}})

		assert.NoError(t, c.Handle(context.Background(), message(7, body)))
		assert.NoError(t, c.Handle(context.Background(), message(7, body)))
		assert.Len(t, ev.evicted, 2)
	})

	t.Run("still evicts when dedupe store is down", func(t *testing.T) {
		ev := &fakeEvictor{}
		c := NewConsumer(log, &fakeReader{}, ev, &fakeDeduper{err: errors.New("redis down")})

		assert.NoError(t, c.Handle(context.Background(), message(1, body)))
		assert.Len(t, ev.evicted, 2)
	})

	t.Run("failed eviction releases the claim", func(t *testing.T) {
		ev := &fakeEvictor{fails: 1}
		dd := &fakeDeduper{seen: map[string]bool{}}
		c := NewConsumer(log, &fakeReader{}, ev, dd)

		assert.Error(t, c.Handle(context.Background(), message(3, body)))
		assert.NotContains(t, dd.seen, "order.events:0:3")

		assert.NoError(t, c.Handle(context.Background(), message(3, body)))
		assert.Equal(t, []uuid.UUID{a, b}, ev.evicted)
		assert.Contains(t, dd.seen, "order.events:0:3")
	})

	t.Run("ignores malformed payloads", func(t *testing.T) {
		ev := &fakeEvictor{}
		c := NewConsumer(log, &fakeReader{}, ev, &fakeDeduper{seen: map[string]bool{}})

		assert.NoError(t, c.Handle(context.Background(), message(1, `not json`)))
		assert.Empty(t, ev.evicted)
	})
}

func TestRunCommitsEveryMessage(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &fakeReader{msgs: []kafka.Message{message(1, `{}`), message(2, `garbage`)}}
	c := NewConsumer(log, reader, &fakeEvictor{}, &fakeDeduper{seen: map[string]bool{}})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestRunRetriesFailedEviction(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	body := fmt.Sprintf(`{"items":[{"productId":%q}]}`, uuid.New())

	t.Run("succeeds within attempts", func(t *testing.T) {
		reader := &fakeReader{msgs: []kafka.Message{message(5, body)}}
		ev := &fakeEvictor{fails: 2}
		c := NewConsumer(log, reader, ev, &fakeDeduper{seen: map[string]bool{}})
		c.backoff = 0

		require.ErrorIs(t, c.Run(context.Background()), io.EOF)
		assert.Equal(t, 3, ev.calls)
		assert.Len(t, ev.evicted, 1)
		assert.Equal(t, []int64{5}, reader.committed)
	})

	t.Run("gives up and commits", func(t *testing.T) {
		reader := &fakeReader{msgs: []kafka.Message{message(6, body)}}
		ev := &fakeEvictor{fails: 10}
		c := NewConsumer(log, reader, ev, &fakeDeduper{seen: map[string]bool{}})
		c.backoff = 0

		require.ErrorIs(t, c.Run(context.Background()), io.EOF)
		assert.Equal(t, 3, ev.calls)
		assert.Empty(t, ev.evicted)
		assert.Equal(t, []int64{6}, reader.committed)
	})
}
