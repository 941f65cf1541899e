package repository

import (
	"context"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ComplaintRepository stores issues in the issues collection.
type ComplaintRepository struct {
	coll *mongo.Collection
}

func (r *ComplaintRepository) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, issue)
	return translate(err, "insert issue")
}

func (r *ComplaintRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		return nil, translate(err, "issue %s", id.Hex())
	}
	return &issue, nil
}

// FindByLegacyID looks an issue up by the integer id it carried before the
// Mongo migration.
func (r *ComplaintRepository) FindByLegacyID(ctx context.Context, legacyID int64) (*models.Issue, error) {
	var issue models.Issue
	err := r.coll.FindOne(ctx, bson.M{"_sqlite_id": legacyID}).Decode(&issue)
	if err != nil {
		return nil, translate(err, "issue #%d", legacyID)
	}
	return &issue, nil
}

func (r *ComplaintRepository) SetStatus(ctx context.Context, id primitive.ObjectID, change services.StatusChange) (*models.Issue, error) {
	set := bson.M{
		"status":     change.Status,
		"updated_at": change.UpdatedAt,
	}
	if change.ResolutionPhotoURL != nil {
		set["resolution_photo_url"] = *change.ResolutionPhotoURL
	}
	if change.ResolvedAt != nil {
		set["resolved_at"] = *change.ResolvedAt
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var issue models.Issue
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&issue)
	if err != nil {
		return nil, translate(err, "update status of %s", id.Hex())
	}
	return &issue, nil
}

func (r *ComplaintRepository) IncrementUpvotes(ctx context.Context, id primitive.ObjectID, delta int) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"upvotes": delta}})
	if err != nil {
		return translate(err, "upvotes of %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return notFound("issue %s", id.Hex())
	}
	return nil
}

func (r *ComplaintRepository) CountByReporterSince(ctx context.Context, reporterID primitive.ObjectID, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"user_id":    reporterID,
		"created_at": bson.M{"$gte": since},
	})
	return n, translate(err, "count reports since %s", since.Format(time.RFC3339))
}

func (r *ComplaintRepository) CountByReporterTitle(ctx context.Context, reporterID primitive.ObjectID, title string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": reporterID, "title": title})
	return n, translate(err, "count reports titled %q", title)
}

func (r *ComplaintRepository) RepeatedTitles(ctx context.Context, reporterID primitive.ObjectID, minCount int64) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": reporterID}}},
		{{Key: "$group", Value: bson.M{"_id": "$title", "count": bson.M{"$sum": 1}}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gte": minCount}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, "repeated titles")
	}
	rows, err := decodeAll[struct {
		Title string `bson:"_id"`
	}](ctx, cursor)
	if err != nil {
		return nil, translate(err, "decode repeated titles")
	}
	titles := make([]string, 0, len(rows))
	for _, row := range rows {
		titles = append(titles, row.Title)
	}
	return titles, nil
}

// FindOpenWithin returns unresolved issues located inside box, most upvoted
// first.
func (r *ComplaintRepository) FindOpenWithin(ctx context.Context, box services.BoundingBox, limit int) ([]models.Issue, error) {
	filter := bson.M{
		"status":    bson.M{"$nin": []models.IssueStatus{models.Resolved, models.Closed}},
		"latitude":  bson.M{"$gte": box.MinLat, "$lte": box.MaxLat},
		"longitude": bson.M{"$gte": box.MinLng, "$lte": box.MaxLng},
	}
	opts := options.Find().SetSort(bson.D{{Key: "upvotes", Value: -1}, {Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "find nearby issues")
	}
	issues, err := decodeAll[models.Issue](ctx, cursor)
	return issues, translate(err, "decode nearby issues")
}

func (r *ComplaintRepository) List(ctx context.Context, q services.ListQuery) ([]models.Issue, error) {
	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	if q.Sort == services.SortMostVoted {
		sort = bson.D{{Key: "upvotes", Value: -1}, {Key: "created_at", Value: -1}}
	}
	opts := options.Find().SetSort(sort)
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.coll.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, translate(err, "list issues")
	}
	issues, err := decodeAll[models.Issue](ctx, cursor)
	return issues, translate(err, "decode issues")
}

func (r *ComplaintRepository) Count(ctx context.Context, q services.ListQuery) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, listFilter(q))
	return n, translate(err, "count issues")
}

func (r *ComplaintRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.Issue, error) {
	filter := bson.M{
		"status":       bson.M{"$nin": []models.IssueStatus{models.Resolved, models.Closed}},
		"is_escalated": bson.M{"$ne": true},
		"sla_deadline": bson.M{"$lt": now, "$gt": time.Time{}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "sla_deadline", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "find overdue issues")
	}
	issues, err := decodeAll[models.Issue](ctx, cursor)
	return issues, translate(err, "decode overdue issues")
}

// MarkEscalated only matches an unescalated issue so concurrent sweeps flag
// it once.
func (r *ComplaintRepository) MarkEscalated(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "is_escalated": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"is_escalated": true, "updated_at": at}},
	)
	if err != nil {
		return false, translate(err, "escalate %s", id.Hex())
	}
	return res.ModifiedCount > 0, nil
}

func listFilter(q services.ListQuery) bson.M {
	filter := bson.M{}
	if q.ReporterID != nil {
		filter["user_id"] = *q.ReporterID
	}
	if q.CategoryID != nil {
		filter["category_id"] = *q.CategoryID
	}
	if q.PublicOnly {
		filter["is_public"] = true
	}
	return filter
}
