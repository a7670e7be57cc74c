// Package postgres implements analytics.TaskStore over a relational copy of
// the task collection, one row per task keyed by the owner's hex id.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics"
	pkgpostgres "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/postgres"
)

type Store struct {
	db    *pkgpostgres.Client
	table string
}

func New(db *pkgpostgres.Client) *Store {
	return &Store{
		db:    db,
		table: pq.QuoteIdentifier(db.Table()),
	}
}

func (s *Store) CountByStatus(ctx context.Context, user analytics.UserID) ([]analytics.GroupCount, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM `+s.table+`
		 WHERE user_id = $1
		 GROUP BY status`,
		user.String(),
	)
	if err != nil {
		return nil, wrap(ctx, "counting tasks by status", err)
	}
	defer rows.Close()

	var groups []analytics.GroupCount
	for rows.Next() {
		var key sql.NullString
		var g analytics.GroupCount
		if err := rows.Scan(&key, &g.Count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		g.Key = key.String
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ctx, "iterating status counts", err)
	}
	return groups, nil
}

// Breakdown groups by status and by priority in one statement; GROUPING()
// tells the two sets apart.
func (s *Store) Breakdown(ctx context.Context, user analytics.UserID) (analytics.Breakdown, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT GROUPING(status) = 0 AS by_status, status, priority, COUNT(*)
		 FROM `+s.table+`
		 WHERE user_id = $1
		 GROUP BY GROUPING SETS ((status), (priority))`,
		user.String(),
	)
	if err != nil {
		return analytics.Breakdown{}, wrap(ctx, "computing task breakdown", err)
	}
	defer rows.Close()

	var b analytics.Breakdown
	for rows.Next() {
		var byStatus bool
		var status, priority sql.NullString
		var count int64
		if err := rows.Scan(&byStatus, &status, &priority, &count); err != nil {
			return analytics.Breakdown{}, fmt.Errorf("scanning breakdown row: %w", err)
		}
		if byStatus {
			b.ByStatus = append(b.ByStatus, analytics.GroupCount{Key: status.String, Count: count})
		} else {
			b.ByPriority = append(b.ByPriority, analytics.GroupCount{Key: priority.String, Count: count})
		}
	}
	if err := rows.Err(); err != nil {
		return analytics.Breakdown{}, wrap(ctx, "iterating breakdown rows", err)
	}
	return b, nil
}

func (s *Store) DailyCounts(ctx context.Context, user analytics.UserID, q analytics.TrendQuery) ([]analytics.TrendPoint, error) {
	var since sql.NullTime
	if !q.Since.IsZero() {
		since = sql.NullTime{Time: q.Since, Valid: true}
	}
	var limit sql.NullInt64
	if q.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(q.Limit), Valid: true}
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM `+s.table+`
		 WHERE user_id = $1 AND status = $2
		   AND ($3::timestamptz IS NULL OR updated_at >= $3)
		 GROUP BY day
		 ORDER BY day
		 LIMIT $4`,
		user.String(), q.Status, since, limit,
	)
	if err != nil {
		return nil, wrap(ctx, "aggregating daily counts", err)
	}
	defer rows.Close()

	var points []analytics.TrendPoint
	for rows.Next() {
		var day sql.NullString
		var p analytics.TrendPoint
		if err := rows.Scan(&day, &p.Count); err != nil {
			return nil, fmt.Errorf("scanning daily count: %w", err)
		}
		p.Date = day.String
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ctx, "iterating daily counts", err)
	}
	return points, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// wrap keeps the context error in the chain when the driver reports a
// cancelled statement instead of ctx.Err().
func wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", op, ctxErr, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
