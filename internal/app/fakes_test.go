package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/domain"
)

type memCatalog struct {
	mu      sync.Mutex
	events  map[string]domain.Event
	seq     int
	markErr error
}

func newMemCatalog(events ...domain.Event) *memCatalog {
	c := &memCatalog{events: map[string]domain.Event{}}
	for _, e := range events {
		c.events[e.ID] = e
	}
	return c
}

func (c *memCatalog) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	e.ID = "EV" + strconv.Itoa(c.seq)
	c.events[e.ID] = e
	return e, nil
}

func (c *memCatalog) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (c *memCatalog) UpdateEvent(ctx context.Context, e domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[e.ID]; !ok {
		return domain.ErrNotFound
	}
	c.events[e.ID] = e
	return nil
}

func (c *memCatalog) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return c.filter(func(domain.Event) bool { return true }), nil
}

func (c *memCatalog) ListEventsByOwner(ctx context.Context, ownerID string) ([]domain.Event, error) {
	return c.filter(func(e domain.Event) bool { return e.OwnerID == ownerID }), nil
}

func (c *memCatalog) ListUnarchived(ctx context.Context) ([]domain.Event, error) {
	return c.filter(func(e domain.Event) bool { return !e.Archived }), nil
}

func (c *memCatalog) MarkArchived(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.markErr != nil {
		return false, c.markErr
	}
	e, ok := c.events[id]
	if !ok || e.Archived {
		return false, nil
	}
	e.Archived = true
	c.events[id] = e
	return true, nil
}

func (c *memCatalog) filter(keep func(domain.Event) bool) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, e := range c.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

type memRegistrations struct {
	mu   sync.Mutex
	regs []domain.Registration
	out  []crdb.OutboxRecord
}

func (m *memRegistrations) CreateRegistration(ctx context.Context, reg domain.Registration, capacity int, events ...crdb.OutboxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	taken := 0
	for _, r := range m.regs {
		if r.EventID != reg.EventID {
			continue
		}
		if r.UserID == reg.UserID {
			return domain.ErrAlreadyRegistered
		}
		taken++
	}
	if capacity > 0 && taken >= capacity {
		return domain.ErrCapacityReached
	}
	m.regs = append(m.regs, reg)
	m.out = append(m.out, events...)
	return nil
}

func (m *memRegistrations) GetRegistration(ctx context.Context, id string) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRegistrations) ListRegistrationsByUser(ctx context.Context, userID string) ([]domain.Registration, error) {
	return m.filter(func(r domain.Registration) bool { return r.UserID == userID }), nil
}

func (m *memRegistrations) ListRegistrationsByEvents(ctx context.Context, eventIDs []string) ([]domain.Registration, error) {
	ids := map[string]bool{}
	for _, id := range eventIDs {
		ids[id] = true
	}
	return m.filter(func(r domain.Registration) bool { return ids[r.EventID] }), nil
}

func (m *memRegistrations) HasRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	return len(m.filter(func(r domain.Registration) bool { return r.EventID == eventID && r.UserID == userID })) > 0, nil
}

func (m *memRegistrations) filter(keep func(domain.Registration) bool) []domain.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Registration
	for _, r := range m.regs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

type memSponsorships struct {
	mu  sync.Mutex
	all []domain.Sponsorship
}

func (m *memSponsorships) CreateSponsorship(ctx context.Context, sp domain.Sponsorship) (domain.Sponsorship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp.ID = "SP" + strconv.Itoa(len(m.all)+1)
	m.all = append(m.all, sp)
	return sp, nil
}

func (m *memSponsorships) ListSponsorshipsByEvents(ctx context.Context, eventIDs []string) ([]domain.Sponsorship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range eventIDs {
		ids[id] = true
	}
	var out []domain.Sponsorship
	for _, sp := range m.all {
		if ids[sp.EventID] {
			out = append(out, sp)
		}
	}
	return out, nil
}

type memChat struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

func (m *memChat) PostMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = "M" + strconv.Itoa(len(m.msgs)+1)
	m.msgs = append(m.msgs, msg)
	return msg, nil
}

func (m *memChat) ListMessages(ctx context.Context, eventID string, limit int64) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.msgs {
		if msg.EventID == eventID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// memOutbox drops records whose dedupe key it already holds, like the
// outbox table's unique constraint.
type memOutbox struct {
	mu      sync.Mutex
	records []crdb.OutboxRecord
	err     error
}

func (m *memOutbox) Enqueue(ctx context.Context, rec crdb.OutboxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range m.records {
		if r.DedupeKey == rec.DedupeKey {
			return nil
		}
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memOutbox) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memOutbox) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.records {
		out = append(out, r.EventType)
	}
	return out
}

var testNow = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)
