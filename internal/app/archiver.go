package app

import (
	"context"
	"time"

	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/eventdate"
	"github.com/robertarktes/campus-events/internal/observability"
	"github.com/robertarktes/campus-events/internal/outbox"
)

// Archiver flags events whose day is over so downstream consumers see an
// event.archived message. Listings do not depend on the flag.
type Archiver struct {
	catalog EventCatalog
	outbox  Outbox
	dates   *eventdate.Classifier
	logger  observability.Logger
}

func NewArchiver(catalog EventCatalog, outbox Outbox, dates *eventdate.Classifier, logger observability.Logger) *Archiver {
	return &Archiver{catalog: catalog, outbox: outbox, dates: dates, logger: logger}
}

func (a *Archiver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.Sweep(ctx); err != nil {
				a.logger.WithError(err).Error("archive sweep failed")
			} else if n > 0 {
				a.logger.WithField("archived", n).Info("archived past events")
			}
		}
	}
}

func (a *Archiver) Sweep(ctx context.Context) (int, error) {
	events, err := a.catalog.ListUnarchived(ctx)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, e := range events {
		if !a.dates.IsPast(e.Date) {
			continue
		}
		rec, err := crdb.NewOutboxRecord("event", e.ID, outbox.EventEventArchived, map[string]interface{}{
			"event_id": e.ID,
			"title":    e.Title,
			"date":     e.Date,
			"owner_id": e.OwnerID,
		})
		if err != nil {
			return archived, err
		}
		// enqueue first: an event marked archived is never swept again
		rec.DedupeKey = archivedDedupeKey(e)
		if err := a.outbox.Enqueue(ctx, rec); err != nil {
			return archived, err
		}
		changed, err := a.catalog.MarkArchived(ctx, e.ID)
		if err != nil {
			return archived, err
		}
		if !changed {
			continue
		}
		archived++
		observability.EventsArchived.Inc()
	}
	return archived, nil
}

// archivedDedupeKey is stable across retried sweeps and changes when the
// event is rescheduled.
func archivedDedupeKey(e domain.Event) string {
	return "event.archived:" + e.ID + ":" + e.Date
}
