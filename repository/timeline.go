package repository

import (
	"context"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TimelineRepository is append-only: events are never updated or removed.
type TimelineRepository struct {
	coll *mongo.Collection
}

func (r *TimelineRepository) Append(ctx context.Context, event *models.TimelineEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, event)
	return translate(err, "append %s event to %s", event.Action, event.IssueID.Hex())
}

func (r *TimelineRepository) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEvent, error) {
	return r.ListByIssues(ctx, []primitive.ObjectID{issueID}, 0)
}

// ListByIssues returns events newest first.
func (r *TimelineRepository) ListByIssues(ctx context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.TimelineEvent, error) {
	if len(issueIDs) == 0 {
		return []models.TimelineEvent{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{"issue_id": bson.M{"$in": issueIDs}}, opts)
	if err != nil {
		return nil, translate(err, "list timeline")
	}
	events, err := decodeAll[models.TimelineEvent](ctx, cursor)
	return events, translate(err, "decode timeline")
}
