// Package repository implements the service store interfaces on MongoDB.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	IssuesCollection     = "issues"
	CategoriesCollection = "categories"
	VotesCollection      = "votes"
	TimelineCollection   = "timelines"
	UsersCollection      = "users"
)

// NewStores wires every store onto db.
func NewStores(db *mongo.Database) services.Stores {
	return services.Stores{
		Complaints: &ComplaintRepository{coll: db.Collection(IssuesCollection)},
		Categories: &CategoryRepository{coll: db.Collection(CategoriesCollection)},
		Votes:      &VoteRepository{coll: db.Collection(VotesCollection)},
		Timeline:   &TimelineRepository{coll: db.Collection(TimelineCollection)},
		Users:      &UserRepository{coll: db.Collection(UsersCollection)},
	}
}

// EnsureIndexes creates the indexes the stores rely on, including the
// unique (issue_id, user_id) vote index that makes vote toggling safe.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := models.EnsureVoteIndex(ctx, db.Collection(VotesCollection)); err != nil {
		return fmt.Errorf("votes index: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		IssuesCollection: {
			{Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "is_public", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "_sqlite_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		TimelineCollection: {
			{Keys: bson.D{{Key: "issue_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CategoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, specs := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("%s indexes: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the service error kinds.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, services.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, services.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), services.ErrNotFound)
}

// decodeAll drains a cursor into a non-nil slice.
func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
