// Package analytics computes task-completion statistics for QuickTask users.
//
// The service is a read-only consumer of the task collection owned by the
// task service. Every figure is derived from one store read per request, so
// counts within a single response always come from the same snapshot.
package analytics

import (
	"context"
	"time"
)

// UserStats is the response of GET /stats/user/{user_id}.
type UserStats struct {
	UserID         string  `json:"userId"`
	TotalTasks     int64   `json:"totalTasks"`
	CompletedTasks int64   `json:"completedTasks"`
	CompletionRate float64 `json:"completionRate"`
}

// TrendPoint is the number of tasks completed on one calendar day. The JSON
// field names follow the aggregation output ({_id: date, count}).
type TrendPoint struct {
	Date  string `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// ProductivityReport is the response of GET /stats/productivity/{user_id}.
type ProductivityReport struct {
	UserID     string       `json:"userId"`
	WindowDays int          `json:"analysis_window_days"`
	Trend      []TrendPoint `json:"trend"`
}

// GroupCount is a task count for one value of a grouped field.
type GroupCount struct {
	Key   string `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// Breakdown holds per-status and per-priority counts read in one pass.
type Breakdown struct {
	ByStatus   []GroupCount
	ByPriority []GroupCount
}

// DashboardStats is the response of GET /stats/dashboard/{user_id}.
type DashboardStats struct {
	UserID         string       `json:"userId"`
	TotalTasks     int64        `json:"totalTasks"`
	CompletedTasks int64        `json:"completedTasks"`
	PendingTasks   int64        `json:"pendingTasks"`
	CompletionRate float64      `json:"completionRate"`
	PriorityStats  []GroupCount `json:"priorityStats"`
}

// TrendQuery selects the tasks counted by TaskStore.DailyCounts.
type TrendQuery struct {
	Status string
	// Since is inclusive; the zero value disables the lower bound.
	Since time.Time
	Limit int
}

// TaskStore is the read side of the task collection.
type TaskStore interface {
	// CountByStatus groups the user's tasks by status.
	CountByStatus(ctx context.Context, user UserID) ([]GroupCount, error)
	// Breakdown groups the user's tasks by status and by priority.
	Breakdown(ctx context.Context, user UserID) (Breakdown, error)
	// DailyCounts counts matching tasks per UTC "YYYY-MM-DD" of updatedAt,
	// ascending by date, at most q.Limit days.
	DailyCounts(ctx context.Context, user UserID, q TrendQuery) ([]TrendPoint, error)
	Ping(ctx context.Context) error
}

// ResultCache memoises computed responses. Fetch decodes a cached value into
// dst, or runs compute, stores its result and decodes that into dst.
type ResultCache interface {
	Fetch(ctx context.Context, key string, dst any, compute func(ctx context.Context) (any, error)) (hit bool, err error)
	InvalidateUser(ctx context.Context, user string) error
	Invalidate(ctx context.Context) (int64, error)
	Stats() (hits, misses int64)
}

// Tracker receives one event per served analytics request.
type Tracker interface {
	Track(event RequestEvent)
}
