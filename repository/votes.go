package repository

import (
	"context"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VoteRepository relies on the unique (issue_id, user_id) index created by
// EnsureIndexes: a second insert for the same pair fails with ErrConflict.
type VoteRepository struct {
	coll *mongo.Collection
}

func (r *VoteRepository) Insert(ctx context.Context, vote *models.Vote) error {
	if vote.ID.IsZero() {
		vote.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, vote)
	return translate(err, "vote on %s", vote.IssueID.Hex())
}

func (r *VoteRepository) Delete(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"issue_id": issueID, "user_id": userID})
	if err != nil {
		return false, translate(err, "remove vote on %s", issueID.Hex())
	}
	return res.DeletedCount > 0, nil
}

func (r *VoteRepository) CountByIssue(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"issue_id": issueID})
	return n, translate(err, "count votes on %s", issueID.Hex())
}

func (r *VoteRepository) RecentForIssues(ctx context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.Vote, error) {
	if len(issueIDs) == 0 {
		return []models.Vote{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{"issue_id": bson.M{"$in": issueIDs}}, opts)
	if err != nil {
		return nil, translate(err, "recent votes")
	}
	votes, err := decodeAll[models.Vote](ctx, cursor)
	return votes, translate(err, "decode votes")
}
