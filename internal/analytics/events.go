package analytics

import "time"

type EventType string

const (
	EventUserStats    EventType = "user_stats"
	EventProductivity EventType = "productivity"
	EventDashboard    EventType = "dashboard"
)

// RequestEvent describes one served analytics request.
type RequestEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Failed    bool      `json:"failed"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskEvent is published by the task service whenever a task is created,
// updated or deleted.
type TaskEvent struct {
	UserID string `json:"userId"`
	TaskID string `json:"taskId,omitempty"`
	Action string `json:"action,omitempty"`
}
