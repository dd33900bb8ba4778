package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dmehra2102/watchstore/pkg/outbox"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

const defaultMaxRetries = 10

type outboxWriter struct {
	q pgutil.DBTX
}

func (w *outboxWriter) Enqueue(ctx context.Context, ev outbox.Event) error {
	_, err := w.q.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		ev.AggregateType, ev.AggregateID, ev.Type, string(ev.Payload), ev.Headers, ev.Traceparent)
	return errors.Wrapf(err, "enqueue %s", ev.Type)
}

// OutboxStore is the relay's view of the outbox table.
type OutboxStore struct {
	log        *slog.Logger
	pool       *pgxpool.Pool
	maxRetries int
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool, maxRetries: defaultMaxRetries}
}

// LockBatch leases pending rows, rows whose lease expired, and failed rows that
// are still under the retry cap.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	var events []outbox.Event
	err := pgutil.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
			FROM outbox
			WHERE status = 'pending'
				OR (status = 'in_progress' AND lease_until < now())
				OR (status = 'failed' AND retry_count < $2)
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		`, batchSize, s.maxRetries)
		if err != nil {
			return errors.Wrap(err, "select outbox batch")
		}
		defer rows.Close()

		for rows.Next() {
			var ev outbox.Event
			var payload string
			if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &payload,
				&ev.Headers, &ev.Traceparent, &ev.CreatedAt, &ev.RetryCount); err != nil {
				return errors.Wrap(err, "scan outbox event")
			}
			ev.Payload = []byte(payload)
			ev.Status = outbox.StatusInProgress
			ev.RelayID = relayID
			events = append(events, ev)
		}
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "iterate outbox batch")
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		_, err = tx.Exec(ctx, `UPDATE outbox
			SET status = 'in_progress', relay_id = $1, lease_until = now() + make_interval(secs => $2)
			WHERE id = ANY($3)`, relayID, lease.Seconds(), ids)
		return errors.Wrap(err, "lease outbox batch")
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status = 'sent', lease_until = NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return errors.Wrap(err, "mark sent")
	}
	if ct.RowsAffected() == 0 {
		return errors.New("mark sent: no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox
		SET status = 'failed', last_error = $2, retry_count = retry_count + 1, lease_until = NULL
		WHERE id = $1`, id, errMsg)
	if err == nil {
		s.log.WarnContext(ctx, "outbox event failed", "event_id", id, "err", errMsg)
	}
	return errors.Wrapf(err, "mark %d failed", id)
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox
		SET lease_until = now() + make_interval(secs => $1)
		WHERE id = ANY($2) AND relay_id = $3`, lease.Seconds(), ids, relayID)
	return errors.Wrap(err, "extend lease")
}
