package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/campus-events/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    string    `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

// LogEvent is keyed by messageID so redelivered messages upsert the same row.
func (a *AuditLogger) LogEvent(ctx context.Context, messageID, action, userID string, at time.Time, data map[string]interface{}) error {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	log := AuditLog{
		ID:        messageID,
		Action:    action,
		UserID:    userID,
		Timestamp: at,
		Data:      bson.M(data),
	}
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": messageID}, log, options.Replace().SetUpsert(true))
	if err != nil {
		a.logger.WithField("action", action).Error("failed to insert audit log", err)
		return err
	}
	return nil
}
