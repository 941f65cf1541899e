package repository

import (
	"context"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const uncategorized = "Uncategorized"

// AnalyticsRepository runs the dashboard aggregations over the issues
// collection.
type AnalyticsRepository struct {
	issues *mongo.Collection
}

func NewAnalytics(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{issues: db.Collection(IssuesCollection)}
}

var (
	hasAddress = bson.M{"address": bson.M{"$nin": bson.A{"", nil}}}

	joinCategory = bson.D{{Key: "$lookup", Value: bson.M{
		"from":         CategoriesCollection,
		"localField":   "category_id",
		"foreignField": "_id",
		"as":           "category",
	}}}
	firstCategoryName = bson.M{"$arrayElemAt": bson.A{"$category.name", 0}}
)

func (a *AnalyticsRepository) CountByStatus(ctx context.Context) (map[models.IssueStatus]int64, error) {
	rows, err := aggregate[struct {
		Status models.IssueStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}](ctx, a.issues, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, translate(err, "count by status")
	}
	out := make(map[models.IssueStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (a *AnalyticsRepository) CountEscalated(ctx context.Context) (int64, error) {
	n, err := a.issues.CountDocuments(ctx, bson.M{"is_escalated": true})
	return n, translate(err, "count escalated")
}

func (a *AnalyticsRepository) CategoryBreakdown(ctx context.Context) ([]services.CategoryCount, error) {
	rows, err := aggregate[services.CategoryCount](ctx, a.issues, mongo.Pipeline{
		joinCategory,
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$ifNull": bson.A{firstCategoryName, uncategorized}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "category": "$_id", "count": 1}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "category", Value: 1}}}},
	})
	return rows, translate(err, "category breakdown")
}

func (a *AnalyticsRepository) MonthlyTrends(ctx context.Context, since time.Time) ([]services.MonthlyTrend, error) {
	rows, err := aggregate[services.MonthlyTrend](ctx, a.issues, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$created_at"}},
			"total": bson.M{"$sum": 1},
			"resolved": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", models.Resolved}}, 1, 0},
			}},
		}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "month": "$_id", "total": 1, "resolved": 1}}},
		{{Key: "$sort", Value: bson.M{"month": 1}}},
	})
	return rows, translate(err, "monthly trends")
}

func (a *AnalyticsRepository) TopAreas(ctx context.Context, limit int) ([]services.AreaCount, error) {
	rows, err := aggregate[services.AreaCount](ctx, a.issues, mongo.Pipeline{
		{{Key: "$match", Value: hasAddress}},
		{{Key: "$group", Value: bson.M{"_id": "$address", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"_id": 0, "address": "$_id", "count": 1}}},
	})
	return rows, translate(err, "top areas")
}

func (a *AnalyticsRepository) HeatPoints(ctx context.Context, since time.Time) ([]services.HeatPoint, error) {
	rows, err := aggregate[services.HeatPoint](ctx, a.issues, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"latitude":   bson.M{"$ne": nil},
			"longitude":  bson.M{"$ne": nil},
			"created_at": bson.M{"$gte": since},
		}}},
		joinCategory,
		{{Key: "$project", Value: bson.M{
			"_id":            0,
			"latitude":       1,
			"longitude":      1,
			"status":         1,
			"priority_score": 1,
			"created_at":     1,
			"category":       firstCategoryName,
		}}},
	})
	return rows, translate(err, "heat points")
}

func (a *AnalyticsRepository) NeglectedAreas(ctx context.Context, limit int) ([]services.NeglectedArea, error) {
	match := bson.M{"status": bson.M{"$nin": bson.A{models.Resolved, models.Closed}}}
	for k, v := range hasAddress {
		match[k] = v
	}
	rows, err := aggregate[services.NeglectedArea](ctx, a.issues, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$address",
			"count":  bson.M{"$sum": 1},
			"oldest": bson.M{"$min": "$created_at"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "oldest", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"_id": 0, "address": "$_id", "count": 1, "oldest": 1}}},
	})
	return rows, translate(err, "neglected areas")
}

func (a *AnalyticsRepository) CategoryDominance(ctx context.Context, since time.Time, limit int) ([]services.AreaCategory, error) {
	match := bson.M{"created_at": bson.M{"$gte": since}}
	for k, v := range hasAddress {
		match[k] = v
	}
	rows, err := aggregate[services.AreaCategory](ctx, a.issues, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		joinCategory,
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"address": "$address", "category": firstCategoryName},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"_id":      0,
			"address":  "$_id.address",
			"category": "$_id.category",
			"count":    1,
		}}},
	})
	return rows, translate(err, "category dominance")
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](ctx, cursor)
}
