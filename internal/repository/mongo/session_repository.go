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

type sessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository creates a new MongoDB implementation of SessionRepository
func NewSessionRepository(db *db.MongoDB) domain.SessionRepository {
	repo := &sessionRepository{
		coll: db.Collection("sessions"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "start_time", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_activity", Value: 1}},
		},
	}

	_, _ = repo.coll.Indexes().CreateMany(ctx, indexes)

	return repo
}

func (r *sessionRepository) ApplyDelta(ctx context.Context, sessionID string, delta domain.SessionDelta) error {
	set := bson.M{"last_activity": delta.Seen}
	if delta.ExitPage != "" {
		set["exit_page"] = delta.ExitPage
	}

	setOnInsert := bson.M{
		"session_id": sessionID,
		"user_id":    delta.UserID,
		"status":     domain.SessionActive,
		"start_time": delta.Seen,
	}
	if delta.EntryPage != "" {
		setOnInsert["entry_page"] = delta.EntryPage
	}
	if delta.Metadata != (domain.Metadata{}) {
		setOnInsert["metadata"] = delta.Metadata
	}

	update := bson.M{
		"$inc":         bson.M{"events": delta.Events, "page_views": delta.PageViews},
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"session_id": sessionID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return domain.NewDependencyError("sessions.applyDelta", err)
	}

	return nil
}

func (r *sessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("session", sessionID)
		}
		return nil, domain.NewDependencyError("sessions.findByID", err)
	}
	return &session, nil
}

func (r *sessionRepository) End(ctx context.Context, sessionID string, endTime time.Time, durationMs int64, exitPage string) (bool, error) {
	set := bson.M{
		"status":      domain.SessionEnded,
		"end_time":    endTime,
		"duration_ms": durationMs,
	}
	if exitPage != "" {
		set["exit_page"] = exitPage
	}

	// Conditional on ACTIVE so the transition stays one-way; a second end
	// matches nothing and leaves the terminal record untouched.
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "status": domain.SessionActive},
		bson.M{"$set": set})
	if err != nil {
		return false, domain.NewDependencyError("sessions.end", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *sessionRepository) ExpireInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	// Pipeline update: end time and duration come from the session's own
	// last_activity, not the sweep time.
	update := []bson.M{
		{
			"$set": bson.M{
				"status":      domain.SessionExpired,
				"end_time":    "$last_activity",
				"duration_ms": bson.M{"$subtract": []interface{}{"$last_activity", "$start_time"}},
			},
		},
	}

	result, err := r.coll.UpdateMany(ctx,
		bson.M{"status": domain.SessionActive, "last_activity": bson.M{"$lt": cutoff}},
		update)
	if err != nil {
		return 0, domain.NewDependencyError("sessions.expireInactive", err)
	}

	return result.ModifiedCount, nil
}

func (r *sessionRepository) Stats(ctx context.Context, start, end time.Time) (*domain.SessionStats, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"start_time": bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":          nil,
				"sessions":     bson.M{"$sum": 1},
				"avg_duration": bson.M{"$avg": "$duration_ms"},
				"bounced": bson.M{"$sum": bson.M{"$cond": []interface{}{
					bson.M{"$lte": []interface{}{"$page_views", 1}}, 1, 0,
				}}},
			},
		},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("sessions.stats", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Sessions    int64    `bson:"sessions"`
		AvgDuration *float64 `bson:"avg_duration"`
		Bounced     int64    `bson:"bounced"`
	}

	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode session stats: %w", err)
		}
	}

	stats := &domain.SessionStats{
		TotalSessions: result.Sessions,
		Bounced:       result.Bounced,
	}
	if result.AvgDuration != nil {
		stats.AvgDurationMs = *result.AvgDuration
	}

	return stats, nil
}

func (r *sessionRepository) CountryBreakdown(ctx context.Context, start, end time.Time, limit int64) ([]domain.CountryStat, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"start_time": bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":      bson.M{"$ifNull": []interface{}{"$metadata.country", "Unknown"}},
				"sessions": bson.M{"$sum": 1},
				"users":    bson.M{"$addToSet": "$user_id"},
			},
		},
		{
			"$project": bson.M{
				"sessions":       1,
				"distinct_users": bson.M{"$size": "$users"},
			},
		},
		{"$sort": bson.M{"sessions": -1}},
		{"$limit": limit},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("sessions.countryBreakdown", err)
	}
	defer cursor.Close(ctx)

	var countries []domain.CountryStat
	for cursor.Next(ctx) {
		var row struct {
			Country       string `bson:"_id"`
			Sessions      int64  `bson:"sessions"`
			DistinctUsers int64  `bson:"distinct_users"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		countries = append(countries, domain.CountryStat{
			Country:       row.Country,
			Sessions:      row.Sessions,
			DistinctUsers: row.DistinctUsers,
		})
	}

	return countries, nil
}

func (r *sessionRepository) DeviceBreakdown(ctx context.Context, start, end time.Time) ([]domain.DeviceStat, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"start_time": bson.M{"$gte": start, "$lte": end},
			},
		},
		{
			"$group": bson.M{
				"_id":   bson.M{"$ifNull": []interface{}{"$metadata.device", "Unknown"}},
				"count": bson.M{"$sum": 1},
			},
		},
		{"$sort": bson.M{"count": -1}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewDependencyError("sessions.deviceBreakdown", err)
	}
	defer cursor.Close(ctx)

	var devices []domain.DeviceStat
	for cursor.Next(ctx) {
		var row struct {
			Device string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		devices = append(devices, domain.DeviceStat{
			Device: row.Device,
			Count:  row.Count,
		})
	}

	return devices, nil
}
