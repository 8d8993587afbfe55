package mongo

import (
	"context"
	"errors"
	"time"

	"pulse-analytics/internal/db"
	"pulse-analytics/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new MongoDB implementation of UserRepository
func NewUserRepository(db *db.MongoDB) domain.UserRepository {
	repo := &userRepository{
		coll: db.Collection("users"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "visitor_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_seen", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "first_seen", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "total_events", Value: -1}},
		},
	}

	_, _ = repo.coll.Indexes().CreateMany(ctx, indexes)

	return repo
}

func (r *userRepository) ApplyDelta(ctx context.Context, visitorID string, delta domain.UserDelta) error {
	update := bson.M{
		"$inc": bson.M{
			"total_events":    delta.Events,
			"total_sessions":  delta.Sessions,
			"total_purchases": delta.Purchases,
			"total_revenue":   delta.Revenue,
		},
		"$set": bson.M{"last_seen": delta.Seen},
		"$setOnInsert": bson.M{
			"visitor_id": visitorID,
			"first_seen": delta.Seen,
		},
	}

	// Upsert keeps find-or-create atomic; concurrent first events for a new
	// visitor cannot create duplicates against the unique index.
	_, err := r.coll.UpdateOne(ctx, bson.M{"visitor_id": visitorID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return domain.NewDependencyError("users.applyDelta", err)
	}

	return nil
}

func (r *userRepository) FindByVisitorID(ctx context.Context, visitorID string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"visitor_id": visitorID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("user", visitorID)
		}
		return nil, domain.NewDependencyError("users.findByVisitorID", err)
	}
	return &user, nil
}

func (r *userRepository) CountActiveBetween(ctx context.Context, start, end time.Time) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"last_seen": bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return 0, domain.NewDependencyError("users.countActiveBetween", err)
	}
	return count, nil
}

func (r *userRepository) SegmentDistribution(ctx context.Context) ([]domain.SegmentCount, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"segments": bson.M{"$exists": true, "$ne": []interface{}{}},
			},
		},
		{"$unwind": "$segments"},
		{
			"$group": bson.M{
				"_id":   "$segments",
				"users": bson.M{"$sum": 1},
			},
		},
		{"$sort": bson.M{"users": -1}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("users.segmentDistribution", err)
	}
	defer cursor.Close(ctx)

	var segments []domain.SegmentCount
	for cursor.Next(ctx) {
		var row struct {
			Segment string `bson:"_id"`
			Users   int64  `bson:"users"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		segments = append(segments, domain.SegmentCount{
			Segment: row.Segment,
			Users:   row.Users,
		})
	}

	return segments, nil
}

func (r *userRepository) TopByEvents(ctx context.Context, limit int64) ([]domain.TopUser, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "total_events", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{
			"visitor_id":      1,
			"email":           1,
			"total_events":    1,
			"total_purchases": 1,
			"total_revenue":   1,
		})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.NewDependencyError("users.topByEvents", err)
	}
	defer cursor.Close(ctx)

	var users []domain.TopUser
	for cursor.Next(ctx) {
		var row struct {
			VisitorID      string  `bson:"visitor_id"`
			Email          string  `bson:"email"`
			TotalEvents    int64   `bson:"total_events"`
			TotalPurchases int64   `bson:"total_purchases"`
			TotalRevenue   float64 `bson:"total_revenue"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		users = append(users, domain.TopUser{
			VisitorID:      row.VisitorID,
			Email:          row.Email,
			TotalEvents:    row.TotalEvents,
			TotalPurchases: row.TotalPurchases,
			TotalRevenue:   row.TotalRevenue,
		})
	}

	return users, nil
}

func (r *userRepository) CountNewBetween(ctx context.Context, start, end time.Time) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"first_seen": bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return 0, domain.NewDependencyError("users.countNewBetween", err)
	}
	return count, nil
}

func (r *userRepository) CountReturningBetween(ctx context.Context, start, end time.Time) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"first_seen": bson.M{"$lt": start},
		"last_seen":  bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return 0, domain.NewDependencyError("users.countReturningBetween", err)
	}
	return count, nil
}

func (r *userRepository) AddToSegment(ctx context.Context, visitorID, segment string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"visitor_id": visitorID},
		bson.M{"$addToSet": bson.M{"segments": segment}})
	if err != nil {
		return domain.NewDependencyError("users.addToSegment", err)
	}
	if result.MatchedCount == 0 {
		return domain.NewNotFoundError("user", visitorID)
	}
	return nil
}

func (r *userRepository) Tag(ctx context.Context, visitorID, tag string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"visitor_id": visitorID},
		bson.M{"$addToSet": bson.M{"tags": tag}})
	if err != nil {
		return domain.NewDependencyError("users.tag", err)
	}
	if result.MatchedCount == 0 {
		return domain.NewNotFoundError("user", visitorID)
	}
	return nil
}
