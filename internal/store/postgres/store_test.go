package postgres

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/config"
	pkgpostgres "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/postgres"
)

const (
	owner = "65a1b2c3d4e5f60718293a4b"
	other = "65a1b2c3d4e5f60718293a4c"
)

type row struct {
	user, status, priority string
	updated                time.Time
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newTestStore creates a scratch task table and skips when PostgreSQL is
// unavailable.
func newTestStore(t *testing.T, rows ...row) *Store {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "quicktask_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "quicktask"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		Table:           fmt.Sprintf("tasks_%d", time.Now().UnixNano()),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	db, err := pkgpostgres.New(cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	table := pq.QuoteIdentifier(cfg.Table)
	t.Cleanup(func() {
		_, _ = db.DB.Exec(`DROP TABLE IF EXISTS ` + table)
		db.Close()
	})

	ctx := context.Background()
	_, err = db.DB.ExecContext(ctx, `CREATE TABLE `+table+` (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL,
		status     TEXT,
		priority   TEXT,
		updated_at TIMESTAMPTZ
	)`)
	if err != nil {
		t.Fatalf("creating table: %v", err)
	}
	for _, r := range rows {
		_, err := db.DB.ExecContext(ctx,
			`INSERT INTO `+table+` (user_id, status, priority, updated_at) VALUES ($1, $2, $3, $4)`,
			r.user, r.status, r.priority, r.updated,
		)
		if err != nil {
			t.Fatalf("inserting task: %v", err)
		}
	}
	return New(db)
}

func TestStoreAggregations(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC)
	store := newTestStore(t,
		row{owner, "Completed", "High", day1},
		row{owner, "Completed", "Low", day1.Add(time.Hour)},
		row{owner, "Completed", "High", day2},
		row{owner, "Todo", "Medium", day2},
		row{other, "Completed", "High", day1},
	)
	ctx := context.Background()
	user := analytics.UserID(owner)

	groups, err := store.CountByStatus(ctx, user)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	counts := map[string]int64{}
	for _, g := range groups {
		counts[g.Key] = g.Count
	}
	if counts["Completed"] != 3 || counts["Todo"] != 1 || len(counts) != 2 {
		t.Errorf("status counts = %v", counts)
	}

	b, err := store.Breakdown(ctx, user)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if len(b.ByStatus) != 2 || len(b.ByPriority) != 3 {
		t.Errorf("breakdown = %+v", b)
	}

	trend, err := store.DailyCounts(ctx, user, analytics.TrendQuery{Status: "Completed", Limit: 100})
	if err != nil {
		t.Fatalf("DailyCounts: %v", err)
	}
	want := []analytics.TrendPoint{{Date: "2024-01-01", Count: 2}, {Date: "2024-01-02", Count: 1}}
	if len(trend) != len(want) || trend[0] != want[0] || trend[1] != want[1] {
		t.Errorf("trend = %+v, want %+v", trend, want)
	}

	windowed, err := store.DailyCounts(ctx, user, analytics.TrendQuery{Status: "Completed", Since: day2.Truncate(24 * time.Hour), Limit: 100})
	if err != nil {
		t.Fatalf("DailyCounts since: %v", err)
	}
	if len(windowed) != 1 || windowed[0].Date != "2024-01-02" {
		t.Errorf("windowed trend = %+v", windowed)
	}
}

func TestStoreCancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.CountByStatus(ctx, analytics.UserID(owner)); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
