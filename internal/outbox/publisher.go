package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/observability"
)

const batchSize = 50

type Source interface {
	ProcessOutbox(ctx context.Context, limit int, fn func(crdb.OutboxRecord) error) (int, error)
	OldestUnpublished(ctx context.Context) (*time.Time, error)
}

type Sink interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	source Source
	sink   Sink
	logger observability.Logger
}

func NewPublisher(source Source, sink Sink, logger observability.Logger) *Publisher {
	return &Publisher{source: source, sink: sink, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil {
				p.logger.WithError(err).Error("outbox flush failed")
			}
		}
	}
}

// Flush publishes batches until the outbox is drained or a publish fails.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := p.source.ProcessOutbox(ctx, batchSize, func(rec crdb.OutboxRecord) error {
			msg := amqp.Publishing{
				MessageId:   rec.DedupeKey,
				ContentType: "application/json",
				Timestamp:   rec.CreatedAt,
				Type:        rec.EventType,
				Body:        rec.Payload,
			}
			if err := p.sink.Publish(ctx, rec.EventType, msg); err != nil {
				p.logger.WithField("outbox_id", rec.ID.String()).WithError(err).Warn("publish failed")
				return err
			}
			return nil
		})
		total += n
		if err != nil {
			return total, err
		}
		if n < batchSize {
			break
		}
	}

	oldest, err := p.source.OldestUnpublished(ctx)
	if err != nil {
		return total, err
	}
	if oldest == nil {
		observability.OutboxLag.Set(0)
	} else {
		observability.OutboxLag.Set(time.Since(*oldest).Seconds())
	}
	return total, nil
}
