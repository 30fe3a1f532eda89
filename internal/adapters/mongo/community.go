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

type SponsorshipRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewSponsorshipRepository(db *mongo.Database, logger observability.Logger) *SponsorshipRepository {
	return &SponsorshipRepository{coll: db.Collection("sponsorships"), logger: logger}
}

type sponsorshipDoc struct {
	ID          string    `bson:"_id"`
	EventID     string    `bson:"event_id"`
	EventTitle  string    `bson:"event_title"`
	SponsorID   string    `bson:"sponsor_id"`
	SponsorName string    `bson:"sponsor_name"`
	Email       string    `bson:"sponsor_email"`
	Details     string    `bson:"sponsor_details"`
	Amount      float64   `bson:"amount"`
	CreatedAt   time.Time `bson:"timestamp"`
}

func (s *SponsorshipRepository) CreateSponsorship(ctx context.Context, sp domain.Sponsorship) (domain.Sponsorship, error) {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now()
	}
	_, err := s.coll.InsertOne(ctx, sponsorshipDoc(sp))
	if err != nil {
		s.logger.WithField("event_id", sp.EventID).Error("failed to create sponsorship", err)
		return domain.Sponsorship{}, errors.Wrap(err, "create sponsorship")
	}
	return sp, nil
}

func (s *SponsorshipRepository) ListSponsorshipsByEvents(ctx context.Context, eventIDs []string) ([]domain.Sponsorship, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	cur, err := s.coll.Find(ctx, bson.M{"event_id": bson.M{"$in": eventIDs}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list sponsorships")
	}
	var docs []sponsorshipDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode sponsorships")
	}
	out := make([]domain.Sponsorship, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Sponsorship(d))
	}
	return out, nil
}

type ChatRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewChatRepository(db *mongo.Database, logger observability.Logger) *ChatRepository {
	return &ChatRepository{coll: db.Collection("event_chats"), logger: logger}
}

type chatDoc struct {
	ID         string    `bson:"_id"`
	EventID    string    `bson:"event_id"`
	SenderID   string    `bson:"sender_id"`
	SenderName string    `bson:"sender_name"`
	Text       string    `bson:"text"`
	SentAt     time.Time `bson:"timestamp"`
}

func (c *ChatRepository) PostMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	if _, err := c.coll.InsertOne(ctx, chatDoc(msg)); err != nil {
		c.logger.WithField("event_id", msg.EventID).Error("failed to post chat message", err)
		return domain.ChatMessage{}, errors.Wrap(err, "post chat message")
	}
	return msg, nil
}

func (c *ChatRepository) ListMessages(ctx context.Context, eventID string, limit int64) ([]domain.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := c.coll.Find(ctx, bson.M{"event_id": eventID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list chat messages")
	}
	var docs []chatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode chat messages")
	}
	out := make([]domain.ChatMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ChatMessage(d))
	}
	return out, nil
}
