package analytics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics/cache"
)

// BenchmarkCompletionRate measures the rate computation across magnitudes.
func BenchmarkCompletionRate(b *testing.B) {
	for _, total := range []int64{3, 1000, 1_000_000} {
		b.Run(fmt.Sprintf("total_%d", total), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = CompletionRate(total/3, total)
			}
		})
	}
}

// BenchmarkDashboardStats measures dashboard assembly for users with many
// distinct priority values.
func BenchmarkDashboardStats(b *testing.B) {
	for _, groups := range []int{3, 50, 500} {
		b.Run(fmt.Sprintf("groups_%d", groups), func(b *testing.B) {
			store := newFakeStore()
			user := UserID(testUser)
			for i := 0; i < groups; i++ {
				store.byStatus[user] = append(store.byStatus[user], GroupCount{Key: fmt.Sprintf("s%03d", i), Count: int64(i)})
				store.byPriority[user] = append(store.byPriority[user], GroupCount{Key: fmt.Sprintf("p%03d", groups-i), Count: int64(i)})
			}
			svc := NewService(store, nil, nil, testConfig())
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := svc.GetDashboardStats(ctx, testUser); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkUserStatsHandler compares the full HTTP path with and without the
// result cache in front of the store.
func BenchmarkUserStatsHandler(b *testing.B) {
	store := newFakeStore()
	store.byStatus[UserID(testUser)] = []GroupCount{{Key: "Completed", Count: 40}, {Key: "Todo", Count: 60}}

	cases := []struct {
		name  string
		cache ResultCache
	}{
		{"uncached", nil},
		{"cached", cache.New(&mapBackend{data: make(map[string][]byte)}, time.Minute, nil)},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			router := newTestRouter(NewService(store, tc.cache, nil, testConfig()))
			req := httptest.NewRequest(http.MethodGet, "/stats/user/"+testUser, nil)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				if rec.Code != http.StatusOK {
					b.Fatalf("status = %d", rec.Code)
				}
			}
		})
	}
}
