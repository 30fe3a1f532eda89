package app

import (
	"context"

	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/domain"
)

type EventCatalog interface {
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListEventsByOwner(ctx context.Context, ownerID string) ([]domain.Event, error)
	ListUnarchived(ctx context.Context) ([]domain.Event, error)
	MarkArchived(ctx context.Context, id string) (bool, error)
}

type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, reg domain.Registration, capacity int, events ...crdb.OutboxRecord) error
	GetRegistration(ctx context.Context, id string) (*domain.Registration, error)
	ListRegistrationsByUser(ctx context.Context, userID string) ([]domain.Registration, error)
	ListRegistrationsByEvents(ctx context.Context, eventIDs []string) ([]domain.Registration, error)
	HasRegistration(ctx context.Context, eventID, userID string) (bool, error)
}

type SponsorshipRepository interface {
	CreateSponsorship(ctx context.Context, sp domain.Sponsorship) (domain.Sponsorship, error)
	ListSponsorshipsByEvents(ctx context.Context, eventIDs []string) ([]domain.Sponsorship, error)
}

type ChatRepository interface {
	PostMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
	ListMessages(ctx context.Context, eventID string, limit int64) ([]domain.ChatMessage, error)
}

type Outbox interface {
	Enqueue(ctx context.Context, record crdb.OutboxRecord) error
}
