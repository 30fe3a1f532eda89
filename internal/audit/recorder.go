// Package audit copies domain events off the bus into the audit log.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/campus-events/internal/observability"
)

var errMalformed = errors.New("malformed event body")

type Sink interface {
	LogEvent(ctx context.Context, messageID, action, userID string, at time.Time, data map[string]interface{}) error
}

type Recorder struct {
	sink   Sink
	logger observability.Logger
	now    func() time.Time
}

func NewRecorder(sink Sink, logger observability.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger, now: time.Now}
}

// Record writes one delivery. The message id keys the row, so a redelivery
// overwrites instead of duplicating.
func (r *Recorder) Record(ctx context.Context, d amqp.Delivery) error {
	var data map[string]interface{}
	if err := json.Unmarshal(d.Body, &data); err != nil {
		return errors.Mark(errors.Wrap(err, "decode event"), errMalformed)
	}

	action := d.Type
	if action == "" {
		action = d.RoutingKey
	}
	userID, _ := data["user_id"].(string)
	at := d.Timestamp
	if at.IsZero() {
		at = r.now()
	}
	return r.sink.LogEvent(ctx, d.MessageId, action, userID, at, data)
}

// Run acks recorded deliveries, drops undecodable ones and requeues the rest.
func (r *Recorder) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			err := r.Record(ctx, d)
			switch {
			case err == nil:
				d.Ack(false)
			case errors.Is(err, errMalformed):
				r.logger.WithField("message_id", d.MessageId).WithError(err).Warn("dropping malformed event")
				d.Nack(false, false)
			default:
				r.logger.WithField("message_id", d.MessageId).WithError(err).Error("audit write failed")
				d.Nack(false, true)
			}
		}
	}
}
