package repository

import (
	"context"
	"regexp"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CategoryRepository struct {
	coll *mongo.Collection
}

func (r *CategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var category models.Category
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&category); err != nil {
		return nil, translate(err, "category %s", id.Hex())
	}
	return &category, nil
}

// FindByName matches the whole name, ignoring case.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := r.coll.FindOne(ctx, bson.M{"name": nameRegex(name)}).Decode(&category)
	if err != nil {
		return nil, translate(err, "category %q", name)
	}
	return &category, nil
}

func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error) {
	out := map[primitive.ObjectID]models.Category{}
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate(err, "find categories")
	}
	categories, err := decodeAll[models.Category](ctx, cursor)
	if err != nil {
		return nil, translate(err, "decode categories")
	}
	for _, c := range categories {
		out[c.ID] = c
	}
	return out, nil
}

// Upsert creates the category or refreshes the one with the same name. It
// reports whether a new document was inserted.
func (r *CategoryRepository) Upsert(ctx context.Context, category *models.Category) (bool, error) {
	update := bson.M{
		"$set": bson.M{
			"department":    category.Department,
			"sla_hours":     category.SLAHours,
			"base_priority": category.BasePriority,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var before struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	existed := r.coll.FindOne(ctx, bson.M{"name": nameRegex(category.Name)}).Decode(&before) == nil
	// An inserted document takes its name from the equality filter.
	filter := bson.M{"name": category.Name}
	if existed {
		filter = bson.M{"_id": before.ID}
	}

	var saved models.Category
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return false, translate(err, "upsert category %q", category.Name)
	}
	*category = saved
	return !existed, nil
}

func nameRegex(name string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}
}
