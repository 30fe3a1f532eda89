package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	FreePayment          = "FREE"
	PaymentCompleted     = "COMPLETED"
	PaymentNotApplicable = "N/A"
	defaultHolderName    = "Attendee"
	defaultCategory      = "social"
)

func NewRegistration(event Event, userID, userName, paymentID string, now time.Time) Registration {
	if paymentID == "" {
		paymentID = FreePayment
	}
	status := PaymentCompleted
	if paymentID == FreePayment {
		status = PaymentNotApplicable
	}
	if userName == "" {
		userName = defaultHolderName
	}
	return Registration{
		ID:            uuid.NewString(),
		EventID:       event.ID,
		EventTitle:    event.Title,
		EventDate:     event.Date,
		EventVenue:    event.Venue,
		UserID:        userID,
		UserName:      userName,
		TicketPrice:   event.Price,
		PaymentID:     paymentID,
		PaymentStatus: status,
		CreatedAt:     now,
	}
}

// CategoryOf falls back to "social" for events created without a category.
func CategoryOf(e Event) string {
	if e.Category == "" {
		return defaultCategory
	}
	return e.Category
}
