package outbox

import (
	"context"
	"time"

	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/domain"
)

const (
	EventTicketRedeemed       = "ticket.redeemed"
	EventRegistrationCreated  = "registration.created"
	EventCertificateRequested = "certificate.requested"
	EventEventArchived        = "event.archived"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, record crdb.OutboxRecord) error
}

type TicketRedeemedPayload struct {
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	HolderName     string    `json:"holder_name"`
	CheckInID      string    `json:"check_in_id"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}

// Notifier announces redemptions through the outbox.
type Notifier struct {
	outbox Enqueuer
}

func NewNotifier(outbox Enqueuer) *Notifier {
	return &Notifier{outbox: outbox}
}

func (n *Notifier) TicketRedeemed(ctx context.Context, reg domain.Registration, at time.Time) error {
	rec, err := crdb.NewOutboxRecord("registration", reg.ID, EventTicketRedeemed, TicketRedeemedPayload{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		HolderName:     reg.UserName,
		CheckInID:      reg.CheckInID,
		RedeemedAt:     at,
	})
	if err != nil {
		return err
	}
	// the check-in id doubles as dedupe key
	if reg.CheckInID != "" {
		rec.DedupeKey = reg.CheckInID
	}
	return n.outbox.Enqueue(ctx, rec)
}
