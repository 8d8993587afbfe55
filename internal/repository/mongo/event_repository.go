package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulse-analytics/internal/db"
	"pulse-analytics/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventRepository struct {
	coll *mongo.Collection
}

// NewEventRepository creates a new MongoDB implementation of EventRepository
func NewEventRepository(db *db.MongoDB) domain.EventRepository {
	repo := &eventRepository{
		coll: db.Collection("events"),
	}

	// Create indexes for better query performance
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}

	_, _ = repo.coll.Indexes().CreateMany(ctx, indexes)

	return repo
}

func (r *eventRepository) Insert(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	_, err := r.coll.InsertOne(ctx, event)
	if err != nil {
		return domain.NewDependencyError("events.insert", err)
	}

	return nil
}

func (r *eventRepository) InsertBatch(ctx context.Context, events []*domain.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(events))
	for i, event := range events {
		docs[i] = event
	}

	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		// An unordered bulk write keeps going past individual failures;
		// anything that did land still counts as persisted.
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			return int64(len(docs) - len(bwe.WriteErrors)), nil
		}
		return 0, domain.NewDependencyError("events.insertBatch", err)
	}

	return int64(len(res.InsertedIDs)), nil
}

func (r *eventRepository) Stats(ctx context.Context, start, end time.Time) (*domain.EventStats, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"timestamp": bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":          nil,
				"total_events": bson.M{"$sum": 1},
				"users":        bson.M{"$addToSet": "$user_id"},
				"page_views": bson.M{"$sum": bson.M{"$cond": []interface{}{
					bson.M{"$eq": []interface{}{"$event_type", string(domain.EventPageView)}}, 1, 0,
				}}},
			},
		},
		{
			"$project": bson.M{
				"total_events":   1,
				"page_views":     1,
				"distinct_users": bson.M{"$size": "$users"},
			},
		},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("events.stats", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		TotalEvents   int64 `bson:"total_events"`
		PageViews     int64 `bson:"page_views"`
		DistinctUsers int64 `bson:"distinct_users"`
	}

	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode event stats: %w", err)
		}
	}

	return &domain.EventStats{
		TotalEvents:    result.TotalEvents,
		DistinctUsers:  result.DistinctUsers,
		TotalPageViews: result.PageViews,
	}, nil
}

func (r *eventRepository) PurchaseStats(ctx context.Context, start, end time.Time) (*domain.PurchaseStats, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"event_type": string(domain.EventPurchase),
				"timestamp":  bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":       nil,
				"purchases": bson.M{"$sum": 1},
				// $sum skips non-numeric values, which matches the
				// missing-amount-counts-as-zero rule.
				"revenue": bson.M{"$sum": "$properties.amount"},
				"users":   bson.M{"$addToSet": "$user_id"},
			},
		},
		{
			"$project": bson.M{
				"purchases":        1,
				"revenue":          1,
				"purchasing_users": bson.M{"$size": "$users"},
			},
		},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("events.purchaseStats", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Purchases       int64   `bson:"purchases"`
		Revenue         float64 `bson:"revenue"`
		PurchasingUsers int64   `bson:"purchasing_users"`
	}

	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode purchase stats: %w", err)
		}
	}

	return &domain.PurchaseStats{
		TotalPurchases:  result.Purchases,
		TotalRevenue:    result.Revenue,
		PurchasingUsers: result.PurchasingUsers,
	}, nil
}

func (r *eventRepository) TopPages(ctx context.Context, start, end time.Time, limit int64) ([]domain.PageStat, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"event_type": string(domain.EventPageView),
				"page_url":   bson.M{"$ne": ""},
				"timestamp":  bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":   "$page_url",
				"views": bson.M{"$sum": 1},
				"users": bson.M{"$addToSet": "$user_id"},
			},
		},
		{
			"$project": bson.M{
				"views":          1,
				"distinct_users": bson.M{"$size": "$users"},
			},
		},
		{"$sort": bson.M{"views": -1}},
		{"$limit": limit},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("events.topPages", err)
	}
	defer cursor.Close(ctx)

	var pages []domain.PageStat
	for cursor.Next(ctx) {
		var row struct {
			PageURL       string `bson:"_id"`
			Views         int64  `bson:"views"`
			DistinctUsers int64  `bson:"distinct_users"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		pages = append(pages, domain.PageStat{
			PageURL:       row.PageURL,
			Views:         row.Views,
			DistinctUsers: row.DistinctUsers,
		})
	}

	return pages, nil
}

func (r *eventRepository) TypeCounts(ctx context.Context, start, end time.Time) ([]domain.EventTypeStat, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"timestamp": bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":   "$event_type",
				"count": bson.M{"$sum": 1},
			},
		},
		{"$sort": bson.M{"count": -1}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("events.typeCounts", err)
	}
	defer cursor.Close(ctx)

	var stats []domain.EventTypeStat
	for cursor.Next(ctx) {
		var row struct {
			EventType string `bson:"_id"`
			Count     int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		stats = append(stats, domain.EventTypeStat{
			EventType: domain.EventType(row.EventType),
			Count:     row.Count,
		})
	}

	return stats, nil
}

func (r *eventRepository) DailyActivity(ctx context.Context, start, end time.Time) ([]domain.DailyActivityStat, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"timestamp": bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				// $dateToString truncates in UTC unless told otherwise
				"_id":      bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$timestamp"}},
				"users":    bson.M{"$addToSet": "$user_id"},
				"sessions": bson.M{"$addToSet": "$session_id"},
				"events":   bson.M{"$sum": 1},
			},
		},
		{
			"$project": bson.M{
				"events":         1,
				"distinct_users": bson.M{"$size": "$users"},
				"sessions":       bson.M{"$size": "$sessions"},
			},
		},
		{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("events.dailyActivity", err)
	}
	defer cursor.Close(ctx)

	var days []domain.DailyActivityStat
	for cursor.Next(ctx) {
		var row struct {
			Date          string `bson:"_id"`
			Events        int64  `bson:"events"`
			DistinctUsers int64  `bson:"distinct_users"`
			Sessions      int64  `bson:"sessions"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		days = append(days, domain.DailyActivityStat{
			Date:          row.Date,
			DistinctUsers: row.DistinctUsers,
			Sessions:      row.Sessions,
			Events:        row.Events,
		})
	}

	return days, nil
}

func (r *eventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, domain.NewDependencyError("events.deleteOlderThan", err)
	}
	return result.DeletedCount, nil
}
