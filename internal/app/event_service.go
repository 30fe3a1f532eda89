package app

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/checkin"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/eventdate"
	"github.com/robertarktes/campus-events/internal/outbox"
	"golang.org/x/sync/errgroup"
)

type ListStatus string

const (
	StatusActive ListStatus = "active"
	StatusPast   ListStatus = "past"
	StatusAll    ListStatus = "all"
)

func ParseListStatus(s string) (ListStatus, error) {
	switch ListStatus(strings.ToLower(s)) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusPast, "history":
		return StatusPast, nil
	case StatusAll:
		return StatusAll, nil
	}
	return "", errors.Wrapf(domain.ErrInvalidInput, "unknown status %q", s)
}

type EventInput struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Date              string  `json:"date"`
	Venue             string  `json:"venue"`
	Department        string  `json:"department"`
	Category          string  `json:"category"`
	Price             float64 `json:"price"`
	Capacity          int     `json:"capacity"`
	AcceptsSponsors   bool    `json:"accepts_sponsorship"`
	SponsorshipAmount float64 `json:"sponsorship_amount"`
	OwnerID           string  `json:"owner_id"`
	OwnerName         string  `json:"owner_name"`
}

// Validate trims text fields. The date is stored as typed; listings treat an
// unparseable date as active.
func (in *EventInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)
	in.Venue = strings.TrimSpace(in.Venue)
	in.Department = strings.TrimSpace(in.Department)
	in.Category = strings.TrimSpace(in.Category)

	switch {
	case in.Title == "" || in.Date == "" || in.Venue == "":
		return errors.Wrap(domain.ErrInvalidInput, "title, date and venue are required")
	case in.OwnerID == "":
		return errors.Wrap(domain.ErrInvalidInput, "owner is required")
	case in.Price < 0 || in.SponsorshipAmount < 0:
		return errors.Wrap(domain.ErrInvalidInput, "amounts must not be negative")
	case in.Capacity < 0:
		return errors.Wrap(domain.ErrInvalidInput, "capacity must not be negative")
	}
	return nil
}

func (in EventInput) apply(e *domain.Event) {
	e.Title = in.Title
	e.Description = in.Description
	e.Date = in.Date
	e.Venue = in.Venue
	e.Department = in.Department
	e.Category = in.Category
	e.Price = in.Price
	e.Capacity = in.Capacity
	e.AcceptsSponsors = in.AcceptsSponsors
	e.SponsorshipAmount = in.SponsorshipAmount
}

type EventService struct {
	catalog      EventCatalog
	regs         RegistrationRepository
	sponsorships SponsorshipRepository
	dates        *eventdate.Classifier
}

func NewEventService(catalog EventCatalog, regs RegistrationRepository, sponsorships SponsorshipRepository, dates *eventdate.Classifier) *EventService {
	return &EventService{catalog: catalog, regs: regs, sponsorships: sponsorships, dates: dates}
}

func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (domain.Event, error) {
	if err := in.Validate(); err != nil {
		return domain.Event{}, err
	}
	event := domain.Event{OwnerID: in.OwnerID, OwnerName: in.OwnerName}
	in.apply(&event)
	return s.catalog.CreateEvent(ctx, event)
}

func (s *EventService) UpdateEvent(ctx context.Context, id string, in EventInput) (domain.Event, error) {
	if err := in.Validate(); err != nil {
		return domain.Event{}, err
	}
	event, err := s.catalog.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OwnerID != in.OwnerID {
		return domain.Event{}, errors.Wrap(domain.ErrForbidden, "only the organizer can edit this event")
	}
	in.apply(event)
	// a new date may bring the event back from history; archiving is left to
	// the Archiver so event.archived is always emitted
	if !s.dates.IsPast(event.Date) {
		event.Archived = false
	}
	if err := s.catalog.UpdateEvent(ctx, *event); err != nil {
		return domain.Event{}, err
	}
	return *event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.catalog.GetEvent(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, status ListStatus) ([]domain.Event, error) {
	events, err := s.catalog.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if status == StatusAll {
		return events, nil
	}
	active, past := eventdate.Partition(events, func(e domain.Event) string { return e.Date }, s.dates.Now())
	if status == StatusPast {
		return past, nil
	}
	return active, nil
}

func (s *EventService) CalendarURL(ctx context.Context, id string) (string, error) {
	event, err := s.catalog.GetEvent(ctx, id)
	if err != nil {
		return "", err
	}
	link, ok := eventdate.CalendarURL(event.Title, event.Description, event.Venue, event.Date, s.dates.Now())
	if !ok {
		return "", errors.Wrapf(domain.ErrInvalidInput, "event date %q is not a calendar date", event.Date)
	}
	return link, nil
}

type Ticket struct {
	Registration domain.Registration
	Payload      string
}

// Register issues a ticket. The QR payload carries the registration id plus
// the event and user ids for display.
func (s *EventService) Register(ctx context.Context, eventID, userID, userName, paymentID string) (Ticket, error) {
	if strings.TrimSpace(userID) == "" {
		return Ticket{}, errors.Wrap(domain.ErrInvalidInput, "user is required")
	}
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return Ticket{}, err
	}

	reg := domain.NewRegistration(*event, userID, strings.TrimSpace(userName), paymentID, s.dates.Now())
	rec, err := crdb.NewOutboxRecord("registration", reg.ID, outbox.EventRegistrationCreated, map[string]interface{}{
		"registration_id": reg.ID,
		"event_id":        reg.EventID,
		"user_id":         reg.UserID,
		"payment_id":      reg.PaymentID,
		"ticket_price":    reg.TicketPrice,
	})
	if err != nil {
		return Ticket{}, err
	}
	if err := s.regs.CreateRegistration(ctx, reg, event.Capacity, rec); err != nil {
		return Ticket{}, err
	}

	payload, err := checkin.EncodePayload(domain.ScanPayload{RegistrationID: reg.ID, EventID: reg.EventID, UserID: reg.UserID})
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{Registration: reg, Payload: payload}, nil
}

// Tickets splits a user's registrations by whether their event day is over.
func (s *EventService) Tickets(ctx context.Context, userID string) (active, history []domain.Registration, err error) {
	regs, err := s.regs.ListRegistrationsByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	active, history = eventdate.Partition(regs, func(r domain.Registration) string { return r.EventDate }, s.dates.Now())
	return active, history, nil
}

type SponsorInput struct {
	SponsorID   string `json:"sponsor_id"`
	SponsorName string `json:"sponsor_name"`
	Email       string `json:"sponsor_email"`
	Details     string `json:"details"`
}

func (s *EventService) Sponsor(ctx context.Context, eventID string, in SponsorInput) (domain.Sponsorship, error) {
	in.SponsorName = strings.TrimSpace(in.SponsorName)
	in.Email = strings.TrimSpace(in.Email)
	if in.SponsorName == "" || in.Email == "" {
		return domain.Sponsorship{}, errors.Wrap(domain.ErrInvalidInput, "company name and contact email are required")
	}
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Sponsorship{}, err
	}
	if !event.AcceptsSponsors {
		return domain.Sponsorship{}, errors.Wrap(domain.ErrNotEligible, "event does not accept sponsorships")
	}
	return s.sponsorships.CreateSponsorship(ctx, domain.Sponsorship{
		EventID:     event.ID,
		EventTitle:  event.Title,
		SponsorID:   in.SponsorID,
		SponsorName: in.SponsorName,
		Email:       in.Email,
		Details:     in.Details,
		Amount:      event.SponsorshipAmount,
		CreatedAt:   s.dates.Now(),
	})
}

func (s *EventService) Dashboard(ctx context.Context, ownerID string) (domain.DashboardStats, error) {
	events, err := s.catalog.ListEventsByOwner(ctx, ownerID)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	var regs []domain.Registration
	var sponsorships []domain.Sponsorship
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regs, err = s.regs.ListRegistrationsByEvents(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		sponsorships, err = s.sponsorships.ListSponsorshipsByEvents(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, err
	}

	return summarize(events, regs, sponsorships, s.dates), nil
}

func summarize(events []domain.Event, regs []domain.Registration, sponsorships []domain.Sponsorship, dates *eventdate.Classifier) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalEvents:        len(events),
		TotalRegistrations: len(regs),
		Categories:         []domain.CategoryStat{},
	}

	perEvent := map[string]int{}
	for _, r := range regs {
		perEvent[r.EventID]++
		stats.TicketRevenue += r.TicketPrice
		if r.Utilized {
			stats.LiveCheckIns++
		}
	}
	for _, sp := range sponsorships {
		stats.SponsorshipRevenue += sp.Amount
	}
	stats.TotalRevenue = stats.TicketRevenue + stats.SponsorshipRevenue

	perCategory := map[string]int{}
	for _, e := range events {
		if dates.IsPast(e.Date) {
			stats.PastEvents++
		} else {
			stats.ActiveEvents++
		}
		perCategory[domain.CategoryOf(e)] += perEvent[e.ID]
	}
	for cat, n := range perCategory {
		stats.Categories = append(stats.Categories, domain.CategoryStat{Category: cat, Registrations: n})
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		if stats.Categories[i].Registrations != stats.Categories[j].Registrations {
			return stats.Categories[i].Registrations > stats.Categories[j].Registrations
		}
		return stats.Categories[i].Category < stats.Categories[j].Category
	})
	return stats
}
