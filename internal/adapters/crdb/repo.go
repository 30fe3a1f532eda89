package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

const Schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id STRING PRIMARY KEY,
	event_id STRING NOT NULL,
	event_title STRING NOT NULL DEFAULT '',
	event_date STRING NOT NULL DEFAULT '',
	event_venue STRING NOT NULL DEFAULT '',
	user_id STRING NOT NULL,
	user_name STRING NOT NULL DEFAULT '',
	ticket_price FLOAT8 NOT NULL DEFAULT 0,
	payment_id STRING NOT NULL DEFAULT '',
	payment_status STRING NOT NULL DEFAULT '',
	utilized BOOL NOT NULL DEFAULT false,
	utilized_at TIMESTAMPTZ,
	check_in_id STRING,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (event_id, user_id),
	INDEX (user_id)
);
CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type STRING NOT NULL,
	aggregate_id STRING NOT NULL,
	event_type STRING NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status STRING NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key STRING NOT NULL UNIQUE,
	INDEX (status, created_at)
);
`

const registrationColumns = `id, event_id, event_title, event_date, event_venue, user_id, user_name,
	ticket_price, payment_id, payment_status, utilized, utilized_at, check_in_id, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return errors.Wrap(err, "apply schema")
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.StoreRoundTrip.WithLabelValues("tx").Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}
	return nil
}

// CreateRegistration inserts reg, refusing it once the event holds capacity
// registrations (capacity <= 0 is unlimited), and enqueues events in the same
// transaction.
func (r *Repository) CreateRegistration(ctx context.Context, reg domain.Registration, capacity int, events ...OutboxRecord) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if capacity > 0 {
			var taken int
			err := tx.QueryRow(ctx, `SELECT count(*) FROM registrations WHERE event_id = $1`, reg.EventID).Scan(&taken)
			if err != nil {
				return errors.Wrap(err, "count registrations")
			}
			if taken >= capacity {
				return domain.ErrCapacityReached
			}
		}

		result, err := tx.Exec(ctx, `
			INSERT INTO registrations (id, event_id, event_title, event_date, event_venue, user_id, user_name,
				ticket_price, payment_id, payment_status, utilized, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11)
			ON CONFLICT (event_id, user_id) DO NOTHING
		`, reg.ID, reg.EventID, reg.EventTitle, reg.EventDate, reg.EventVenue, reg.UserID, reg.UserName,
			reg.TicketPrice, reg.PaymentID, reg.PaymentStatus, reg.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert registration")
		}
		if result.RowsAffected() == 0 {
			return domain.ErrAlreadyRegistered
		}

		for _, rec := range events {
			if err := r.InsertOutbox(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetRegistration(ctx context.Context, id string) (*domain.Registration, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get registration %s", id)
	}
	return reg, nil
}

// RedeemRegistration flips utilized only while it is still false.
func (r *Repository) RedeemRegistration(ctx context.Context, id, checkInID string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE registrations SET utilized = true, utilized_at = $2, check_in_id = $3
		WHERE id = $1 AND utilized = false
	`, id, at, checkInID)
	if err != nil {
		return errors.Wrapf(err, "redeem registration %s", id)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return errors.Wrapf(err, "probe registration %s", id)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *Repository) ListRegistrationsByUser(ctx context.Context, userID string) ([]domain.Registration, error) {
	return r.listRegistrations(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) ListRegistrationsByEvents(ctx context.Context, eventIDs []string) ([]domain.Registration, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	return r.listRegistrations(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = ANY($1) ORDER BY created_at DESC`, eventIDs)
}

func (r *Repository) HasRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)
	`, eventID, userID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check registration")
	}
	return exists, nil
}

func (r *Repository) listRegistrations(ctx context.Context, query string, args ...any) ([]domain.Registration, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list registrations")
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var reg domain.Registration
	var checkInID *string
	err := row.Scan(&reg.ID, &reg.EventID, &reg.EventTitle, &reg.EventDate, &reg.EventVenue, &reg.UserID, &reg.UserName,
		&reg.TicketPrice, &reg.PaymentID, &reg.PaymentStatus, &reg.Utilized, &reg.UtilizedAt, &checkInID, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	if checkInID != nil {
		reg.CheckInID = *checkInID
	}
	return &reg, nil
}
