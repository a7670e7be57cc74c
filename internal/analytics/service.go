package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/logger"
)

const maxWindowDays = 3650

// Service answers analytics queries against a TaskStore. The cache and
// tracker are optional.
type Service struct {
	store   TaskStore
	cache   ResultCache
	tracker Tracker
	cfg     config.AnalyticsConfig
	now     func() time.Time
}

func NewService(store TaskStore, cache ResultCache, tracker Tracker, cfg config.AnalyticsConfig) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		tracker: tracker,
		cfg:     cfg,
		now:     time.Now,
	}
}

// DefaultWindowDays is used when a productivity request carries no days.
func (s *Service) DefaultWindowDays() int {
	return s.cfg.DefaultWindowDays
}

// GetUserStats returns the user's total and completed task counts and the
// completion percentage.
func (s *Service) GetUserStats(ctx context.Context, rawID string) (*UserStats, error) {
	start := s.now()
	user, err := ParseUserID(rawID)
	if err != nil {
		return nil, err
	}

	var stats UserStats
	hit, err := s.fetch(ctx, cacheKey(user, "user"), &stats, func(ctx context.Context) (any, error) {
		groups, err := s.store.CountByStatus(ctx, user)
		if err != nil {
			return nil, storeError("counting tasks by status", err)
		}
		total, completed := s.tally(groups)
		return &UserStats{
			TotalTasks:     total,
			CompletedTasks: completed,
			CompletionRate: CompletionRate(completed, total),
		}, nil
	})
	s.track(ctx, EventUserStats, user, start, hit, err)
	if err != nil {
		return nil, err
	}
	stats.UserID = rawID
	return &stats, nil
}

// GetProductivityAnalysis returns the per-day count of completed tasks. days
// is always echoed back unchanged. It only narrows the query when the service
// is configured to filter, and then it is clamped to 1..maxWindowDays.
func (s *Service) GetProductivityAnalysis(ctx context.Context, rawID string, days int) (*ProductivityReport, error) {
	start := s.now()
	user, err := ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	query := TrendQuery{
		Status: s.cfg.CompletedStatus,
		Limit:  s.cfg.TrendLimit,
	}
	key := cacheKey(user, "productivity")
	if s.cfg.ApplyWindowFilter {
		window := min(max(days, 1), maxWindowDays)
		query.Since = s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(window - 1))
		key = cacheKey(user, "productivity", strconv.Itoa(window), query.Since.Format(time.DateOnly))
	}

	var trend []TrendPoint
	hit, err := s.fetch(ctx, key, &trend, func(ctx context.Context) (any, error) {
		points, err := s.store.DailyCounts(ctx, user, query)
		if err != nil {
			return nil, storeError("aggregating completed tasks per day", err)
		}
		if len(points) > query.Limit {
			points = points[:query.Limit]
		}
		return points, nil
	})
	s.track(ctx, EventProductivity, user, start, hit, err)
	if err != nil {
		return nil, err
	}
	if trend == nil {
		trend = []TrendPoint{}
	}
	return &ProductivityReport{
		UserID:     rawID,
		WindowDays: days,
		Trend:      trend,
	}, nil
}

// GetDashboardStats returns the dashboard summary: totals, pending count,
// completion rate and the per-priority distribution.
func (s *Service) GetDashboardStats(ctx context.Context, rawID string) (*DashboardStats, error) {
	start := s.now()
	user, err := ParseUserID(rawID)
	if err != nil {
		return nil, err
	}

	var stats DashboardStats
	hit, err := s.fetch(ctx, cacheKey(user, "dashboard"), &stats, func(ctx context.Context) (any, error) {
		b, err := s.store.Breakdown(ctx, user)
		if err != nil {
			return nil, storeError("computing task breakdown", err)
		}
		total, completed := s.tally(b.ByStatus)
		priorities := append([]GroupCount{}, b.ByPriority...)
		sort.Slice(priorities, func(i, j int) bool { return priorities[i].Key < priorities[j].Key })
		return &DashboardStats{
			TotalTasks:     total,
			CompletedTasks: completed,
			PendingTasks:   total - completed,
			CompletionRate: CompletionRate(completed, total),
			PriorityStats:  priorities,
		}, nil
	})
	s.track(ctx, EventDashboard, user, start, hit, err)
	if err != nil {
		return nil, err
	}
	stats.UserID = rawID
	if stats.PriorityStats == nil {
		stats.PriorityStats = []GroupCount{}
	}
	return &stats, nil
}

// CacheStats reports cache counters; enabled is false when no cache is wired.
func (s *Service) CacheStats() (hits, misses int64, enabled bool) {
	if s.cache == nil {
		return 0, 0, false
	}
	hits, misses = s.cache.Stats()
	return hits, misses, true
}

// InvalidateCache drops every cached result.
func (s *Service) InvalidateCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, apperrors.New(apperrors.ErrCacheDisabled, http.StatusServiceUnavailable, "caching is disabled")
	}
	n, err := s.cache.Invalidate(ctx)
	if err != nil {
		return 0, fmt.Errorf("invalidating result cache: %w", err)
	}
	return n, nil
}

// CompletionRate returns completed/total as a percentage rounded to two
// decimals, or 0 when total is 0.
func CompletionRate(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	rate := float64(completed) / float64(total) * 100
	return math.Round(rate*100) / 100
}

func (s *Service) tally(groups []GroupCount) (total, completed int64) {
	for _, g := range groups {
		total += g.Count
		if g.Key == s.cfg.CompletedStatus {
			completed += g.Count
		}
	}
	return total, completed
}

func (s *Service) fetch(ctx context.Context, key string, dst any, compute func(ctx context.Context) (any, error)) (bool, error) {
	if s.cache != nil {
		return s.cache.Fetch(ctx, key, dst, compute)
	}
	v, err := compute(ctx)
	if err != nil {
		return false, err
	}
	return false, assign(dst, v)
}

func (s *Service) track(ctx context.Context, typ EventType, user UserID, start time.Time, hit bool, err error) {
	if s.tracker == nil {
		return
	}
	s.tracker.Track(RequestEvent{
		Type:      typ,
		UserID:    user.String(),
		LatencyMs: s.now().Sub(start).Milliseconds(),
		CacheHit:  hit,
		Failed:    err != nil,
		RequestID: logger.RequestIDFrom(ctx),
		Timestamp: s.now().UTC(),
	})
}

// storeError wraps a store failure as an upstream fault, additionally marked
// ErrTimeout when a deadline caused it.
func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	return apperrors.Upstream(op, err)
}

// assign copies a freshly computed value into dst when no cache is involved.
func assign(dst, v any) error {
	switch d := dst.(type) {
	case *UserStats:
		*d = *v.(*UserStats)
	case *DashboardStats:
		*d = *v.(*DashboardStats)
	case *[]TrendPoint:
		*d = v.([]TrendPoint)
	default:
		return fmt.Errorf("%w: unsupported result type %T", apperrors.ErrInternal, dst)
	}
	return nil
}

func cacheKey(user UserID, kind string, parts ...string) string {
	key := string(user) + ":" + kind
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
