package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func NewOutboxRecord(aggregateType, aggregateID, eventType string, payload any) (OutboxRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxRecord{}, errors.Wrapf(err, "marshal %s payload", eventType)
	}
	id := uuid.New()
	return OutboxRecord{
		ID:            id,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		Status:        "NEW",
		DedupeKey:     id.String(),
	}, nil
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return errors.Wrap(err, "insert outbox")
}

// Enqueue writes a single outbox record in its own transaction. A record
// whose dedupe key is already stored is dropped.
func (r *Repository) Enqueue(ctx context.Context, record OutboxRecord) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		return r.InsertOutbox(ctx, tx, record)
	})
}

// ProcessOutbox locks up to limit NEW records, hands each to fn in creation
// order and marks the ones fn accepted as published, all in one transaction.
func (r *Repository) ProcessOutbox(ctx context.Context, limit int, fn func(OutboxRecord) error) (int, error) {
	published := 0
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
			FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return errors.Wrap(err, "select outbox")
		}
		records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OutboxRecord, error) {
			var rec OutboxRecord
			err := row.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
			return rec, err
		})
		if err != nil {
			return errors.Wrap(err, "scan outbox")
		}

		for _, rec := range records {
			if err := fn(rec); err != nil {
				// keep order: later records wait for this one
				break
			}
			_, err := tx.Exec(ctx, `
				UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
			`, rec.ID, time.Now())
			if err != nil {
				return errors.Wrap(err, "mark published")
			}
			published++
		}
		return nil
	})
	return published, err
}

func (r *Repository) OldestUnpublished(ctx context.Context) (*time.Time, error) {
	var created *time.Time
	err := r.pool.QueryRow(ctx, `SELECT min(created_at) FROM outbox WHERE status = 'NEW'`).Scan(&created)
	if err != nil {
		return nil, errors.Wrap(err, "oldest outbox")
	}
	return created, nil
}
