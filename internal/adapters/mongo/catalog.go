package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID                string    `bson:"_id"`
	Title             string    `bson:"title"`
	Description       string    `bson:"description"`
	Date              string    `bson:"date"`
	Venue             string    `bson:"venue"`
	Department        string    `bson:"department"`
	Category          string    `bson:"category"`
	Price             float64   `bson:"price"`
	Capacity          int       `bson:"capacity"`
	AcceptsSponsors   bool      `bson:"accepts_sponsorship"`
	SponsorshipAmount float64   `bson:"sponsorship_amount"`
	OwnerID           string    `bson:"created_by"`
	OwnerName         string    `bson:"college_name"`
	Archived          bool      `bson:"archived"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func eventDocFrom(e domain.Event) EventDoc {
	return EventDoc{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Date:              e.Date,
		Venue:             e.Venue,
		Department:        e.Department,
		Category:          e.Category,
		Price:             e.Price,
		Capacity:          e.Capacity,
		AcceptsSponsors:   e.AcceptsSponsors,
		SponsorshipAmount: e.SponsorshipAmount,
		OwnerID:           e.OwnerID,
		OwnerName:         e.OwnerName,
		Archived:          e.Archived,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func (d EventDoc) toDomain() domain.Event {
	return domain.Event{
		ID:                d.ID,
		Title:             d.Title,
		Description:       d.Description,
		Date:              d.Date,
		Venue:             d.Venue,
		Department:        d.Department,
		Category:          d.Category,
		Price:             d.Price,
		Capacity:          d.Capacity,
		AcceptsSponsors:   d.AcceptsSponsors,
		SponsorshipAmount: d.SponsorshipAmount,
		OwnerID:           d.OwnerID,
		OwnerName:         d.OwnerName,
		Archived:          d.Archived,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func (c *CatalogRepository) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	var doc EventDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithField("event_id", id).Error("failed to get event", err)
		return nil, errors.Wrap(err, "get event")
	}
	event := doc.toDomain()
	return &event, nil
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	_, err := c.coll.InsertOne(ctx, eventDocFrom(event))
	if err != nil {
		c.logger.Error("failed to create event", err)
		return domain.Event{}, errors.Wrap(err, "create event")
	}
	return event, nil
}

func (c *CatalogRepository) UpdateEvent(ctx context.Context, event domain.Event) error {
	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": event.ID}, bson.M{"$set": bson.M{
		"title":               event.Title,
		"description":         event.Description,
		"date":                event.Date,
		"venue":               event.Venue,
		"department":          event.Department,
		"category":            event.Category,
		"price":               event.Price,
		"capacity":            event.Capacity,
		"accepts_sponsorship": event.AcceptsSponsors,
		"sponsorship_amount":  event.SponsorshipAmount,
		"archived":            event.Archived,
		"updated_at":          time.Now(),
	}})
	if err != nil {
		c.logger.WithField("event_id", event.ID).Error("failed to update event", err)
		return errors.Wrap(err, "update event")
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *CatalogRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return c.find(ctx, bson.M{})
}

func (c *CatalogRepository) ListEventsByOwner(ctx context.Context, ownerID string) ([]domain.Event, error) {
	return c.find(ctx, bson.M{"created_by": ownerID})
}

func (c *CatalogRepository) ListUnarchived(ctx context.Context) ([]domain.Event, error) {
	return c.find(ctx, bson.M{"archived": bson.M{"$ne": true}})
}

// MarkArchived reports whether this call did the archiving.
func (c *CatalogRepository) MarkArchived(ctx context.Context, id string) (bool, error) {
	res, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": id, "archived": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"archived": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, errors.Wrap(err, "archive event")
	}
	return res.ModifiedCount == 1, nil
}

func (c *CatalogRepository) find(ctx context.Context, filter bson.M) ([]domain.Event, error) {
	cur, err := c.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		c.logger.Error("failed to list events", err)
		return nil, errors.Wrap(err, "list events")
	}
	var docs []EventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode events")
	}
	events := make([]domain.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toDomain())
	}
	return events, nil
}
