package store

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/blog/internal/models"
)

// MongoStore keeps the moderation journal in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("moderation")}
}

// Record appends a moderation event.
func (s *MongoStore) Record(ctx context.Context, ev *models.AuditEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, ev)
	if err != nil {
		return oops.Code("JOURNAL_WRITE_FAILED").With("action", ev.Action).
			Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		ev.ID = oid
	}
	return nil
}

// Recent returns the newest events first, at most limit of them.
func (s *MongoStore) Recent(ctx context.Context, limit int64) ([]models.AuditEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, oops.Code("JOURNAL_READ_FAILED").With("limit", limit).
			Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
	}
	defer cur.Close(ctx)

	var events []models.AuditEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, oops.Code("JOURNAL_DECODE_FAILED").
			Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err))
	}
	return events, nil
}

// NopJournal is used when no MongoDB is configured.
type NopJournal struct{}

func (NopJournal) Record(context.Context, *models.AuditEvent) error { return nil }

func (NopJournal) Recent(context.Context, int64) ([]models.AuditEvent, error) { return nil, nil }
