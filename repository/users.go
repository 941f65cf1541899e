package repository

import (
	"context"
	"strings"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(user.Email)
	_, err := r.coll.InsertOne(ctx, user)
	return translate(err, "insert user %s", user.Email)
}

// Update rewrites the profile fields. Points are only ever changed through
// AddPoints.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	set := bson.M{
		"name":        user.Name,
		"email":       strings.ToLower(user.Email),
		"role":        user.Role,
		"is_verified": user.IsVerified,
		"updated_at":  user.UpdatedAt,
	}
	if user.Password != "" {
		set["password_hash"] = user.Password
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set})
	if err != nil {
		return translate(err, "update user %s", user.ID.Hex())
	}
	if res.MatchedCount == 0 {
		return notFound("user %s", user.ID.Hex())
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err, "user %s", id.Hex())
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := map[primitive.ObjectID]models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate(err, "find users")
	}
	users, err := decodeAll[models.User](ctx, cursor)
	if err != nil {
		return nil, translate(err, "decode users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		return nil, translate(err, "user %s", email)
	}
	return &user, nil
}

func (r *UserRepository) AddPoints(ctx context.Context, id primitive.ObjectID, delta int) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return translate(err, "points of %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return notFound("user %s", id.Hex())
	}
	return nil
}

func (r *UserRepository) SetRole(ctx context.Context, email string, role models.Role) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now()}},
	)
	if err != nil {
		return translate(err, "set role of %s", email)
	}
	if res.MatchedCount == 0 {
		return notFound("user %s", email)
	}
	return nil
}

// Leaderboard ranks verified citizens by points, counting their reports with
// a lookup into the issues collection.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]services.LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"role": models.RoleCitizen, "is_verified": true}}},
		{{Key: "$sort", Value: bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         IssuesCollection,
			"localField":   "_id",
			"foreignField": "user_id",
			"as":           "reports",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"name":    1,
			"points":  1,
			"reports": bson.M{"$size": "$reports"},
		}}},
	)

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, "leaderboard")
	}
	rows, err := decodeAll[struct {
		ID      primitive.ObjectID `bson:"_id"`
		Name    string             `bson:"name"`
		Points  int                `bson:"points"`
		Reports int64              `bson:"reports"`
	}](ctx, cursor)
	if err != nil {
		return nil, translate(err, "decode leaderboard")
	}

	entries := make([]services.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, services.LeaderboardEntry{
			ID:      row.ID.Hex(),
			Name:    row.Name,
			Points:  row.Points,
			Reports: row.Reports,
		})
	}
	return entries, nil
}

func (r *UserRepository) CountCitizens(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"role": models.RoleCitizen})
	return n, translate(err, "count citizens")
}
