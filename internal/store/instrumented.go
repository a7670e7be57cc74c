// Package store holds backend-independent decorators for analytics.TaskStore.
// The concrete backends live in the mongo and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/tracing"
)

// Instrumented records query counts, latency and a trace span for every call
// that reaches the wrapped store.
type Instrumented struct {
	next    analytics.TaskStore
	metrics *metrics.Metrics
}

func NewInstrumented(next analytics.TaskStore, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (s *Instrumented) CountByStatus(ctx context.Context, user analytics.UserID) ([]analytics.GroupCount, error) {
	ctx, span := tracing.StartChildSpan(ctx, "store.count_by_status")
	start := time.Now()
	groups, err := s.next.CountByStatus(ctx, user)
	s.track(span, "count_by_status", start, err)
	return groups, err
}

func (s *Instrumented) Breakdown(ctx context.Context, user analytics.UserID) (analytics.Breakdown, error) {
	ctx, span := tracing.StartChildSpan(ctx, "store.breakdown")
	start := time.Now()
	b, err := s.next.Breakdown(ctx, user)
	s.track(span, "breakdown", start, err)
	return b, err
}

func (s *Instrumented) DailyCounts(ctx context.Context, user analytics.UserID, q analytics.TrendQuery) ([]analytics.TrendPoint, error) {
	ctx, span := tracing.StartChildSpan(ctx, "store.daily_counts")
	start := time.Now()
	points, err := s.next.DailyCounts(ctx, user, q)
	s.track(span, "daily_counts", start, err)
	return points, err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) track(span *tracing.Span, op string, start time.Time, err error) {
	span.SetAttr("outcome", outcome(err))
	span.End()
	if s.metrics == nil {
		return
	}
	s.metrics.StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.metrics.StoreQueriesTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
