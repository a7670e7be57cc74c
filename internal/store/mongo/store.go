// Package mongo implements analytics.TaskStore over the MongoDB task
// collection written by the QuickTask API. Every method is a single
// aggregation, so the figures it returns come from one read.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics"
	pkgmongo "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/mongo"
)

// Task document field names.
const (
	fieldUser      = "user"
	fieldStatus    = "status"
	fieldPriority  = "priority"
	fieldUpdatedAt = "updatedAt"
)

type Store struct {
	coll         *mongo.Collection
	ping         func(ctx context.Context) error
	queryTimeout time.Duration
}

// New returns a Store reading the client's configured collection. A zero
// queryTimeout leaves deadlines to the caller's context.
func New(client *pkgmongo.Client, queryTimeout time.Duration) *Store {
	return &Store{
		coll:         client.Collection(),
		ping:         client.Ping,
		queryTimeout: queryTimeout,
	}
}

func (s *Store) CountByStatus(ctx context.Context, user analytics.UserID) ([]analytics.GroupCount, error) {
	pipeline := mongo.Pipeline{
		matchUser(user),
		groupCount("$" + fieldStatus),
	}
	var groups []analytics.GroupCount
	if err := s.aggregate(ctx, "count_by_status", pipeline, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Store) Breakdown(ctx context.Context, user analytics.UserID) (analytics.Breakdown, error) {
	pipeline := mongo.Pipeline{
		matchUser(user),
		{{Key: "$facet", Value: bson.D{
			{Key: "byStatus", Value: bson.A{groupCount("$" + fieldStatus)}},
			{Key: "byPriority", Value: bson.A{groupCount("$" + fieldPriority)}},
		}}},
	}
	var facets []struct {
		ByStatus   []analytics.GroupCount `bson:"byStatus"`
		ByPriority []analytics.GroupCount `bson:"byPriority"`
	}
	if err := s.aggregate(ctx, "breakdown", pipeline, &facets); err != nil {
		return analytics.Breakdown{}, err
	}
	if len(facets) == 0 {
		return analytics.Breakdown{}, nil
	}
	return analytics.Breakdown{ByStatus: facets[0].ByStatus, ByPriority: facets[0].ByPriority}, nil
}

func (s *Store) DailyCounts(ctx context.Context, user analytics.UserID, q analytics.TrendQuery) ([]analytics.TrendPoint, error) {
	match := bson.D{
		{Key: fieldUser, Value: user.ObjectID()},
		{Key: fieldStatus, Value: q.Status},
	}
	if !q.Since.IsZero() {
		match = append(match, bson.E{Key: fieldUpdatedAt, Value: bson.D{{Key: "$gte", Value: q.Since}}})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		groupCount(bson.D{{Key: "$dateToString", Value: bson.D{
			{Key: "format", Value: "%Y-%m-%d"},
			{Key: "date", Value: "$" + fieldUpdatedAt},
		}}}),
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.Limit}})
	}
	var points []analytics.TrendPoint
	if err := s.aggregate(ctx, "daily_counts", pipeline, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) aggregate(ctx context.Context, op string, pipeline mongo.Pipeline, results any) error {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return s.wrap(op, err)
	}
	if err := cur.All(ctx, results); err != nil {
		return s.wrap(op, err)
	}
	return nil
}

func (s *Store) wrap(op string, err error) error {
	if mongo.IsTimeout(err) {
		return fmt.Errorf("mongo %s: %w: %w", op, context.DeadlineExceeded, err)
	}
	return fmt.Errorf("mongo %s: %w", op, err)
}

func matchUser(user analytics.UserID) bson.D {
	return bson.D{{Key: "$match", Value: bson.D{{Key: fieldUser, Value: user.ObjectID()}}}}
}

func groupCount(id any) bson.D {
	return bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: id},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}}
}
