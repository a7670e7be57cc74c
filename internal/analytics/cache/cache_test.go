package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/redis"
)

type memBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, pkgredis.ErrMiss
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func (m *memBackend) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type result struct {
	Total int64 `json:"total"`
}

func TestFetchMissThenHit(t *testing.T) {
	backend := newMemBackend()
	m := metrics.New(prometheus.NewRegistry())
	c := New(backend, time.Minute, m)

	var calls int
	compute := func(context.Context) (any, error) {
		calls++
		return &result{Total: 10}, nil
	}

	var first result
	hit, err := c.Fetch(context.Background(), "u1:user", &first, compute)
	if err != nil || hit {
		t.Fatalf("first fetch: hit=%v err=%v", hit, err)
	}
	if first.Total != 10 {
		t.Errorf("first = %+v", first)
	}
	if backend.lastTTL != time.Minute {
		t.Errorf("ttl = %v", backend.lastTTL)
	}

	var second result
	hit, err = c.Fetch(context.Background(), "u1:user", &second, compute)
	if err != nil || !hit {
		t.Fatalf("second fetch: hit=%v err=%v", hit, err)
	}
	if second != first {
		t.Errorf("cached %+v != computed %+v", second, first)
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d", hits, misses)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("hit metric = %v", got)
	}
}

func TestFetchComputeErrorNotCached(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	boom := errors.New("store down")

	var dst result
	_, err := c.Fetch(context.Background(), "u1:user", &dst, func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(backend.data) != 0 {
		t.Errorf("error result was cached: %v", backend.data)
	}
}

func TestFetchBackendFailureDegradesToCompute(t *testing.T) {
	backend := newMemBackend()
	backend.getErr = errors.New("redis: connection refused")
	backend.setErr = errors.New("redis: connection refused")
	c := New(backend, time.Minute, nil)

	var dst result
	hit, err := c.Fetch(context.Background(), "u1:user", &dst, func(context.Context) (any, error) {
		return &result{Total: 3}, nil
	})
	if err != nil || hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if dst.Total != 3 {
		t.Errorf("dst = %+v", dst)
	}
}

func TestFetchSingleflight(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return &result{Total: 7}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.Fetch(context.Background(), "u1:dashboard", &results[i], compute); err != nil {
				t.Errorf("fetch %d: %v", i, err)
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compute calls = %d, want 1", n)
	}
	for i, r := range results {
		if r.Total != 7 {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestInvalidateUser(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	compute := func(context.Context) (any, error) { return &result{Total: 1}, nil }

	for _, key := range []string{"u1:user", "u1:dashboard", "u2:user"} {
		var dst result
		if _, err := c.Fetch(context.Background(), key, &dst, compute); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.InvalidateUser(context.Background(), "u1"); err != nil {
		t.Fatalf("InvalidateUser: %v", err)
	}
	if _, ok := backend.data["analytics:u2:user"]; !ok {
		t.Error("other user's entry was removed")
	}
	if len(backend.data) != 1 {
		t.Errorf("remaining keys = %v", backend.data)
	}

	n, err := c.Invalidate(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Invalidate = %d, %v", n, err)
	}
}

func TestFetchSharedComputeOutlivesCancelledCaller(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var computeErr atomic.Value
	compute := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			computeErr.Store(err)
			return nil, err
		}
		return &result{Total: 5}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var dst result
		_, err := c.Fetch(ctx, "u1:dashboard", &dst, compute)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		res result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		var dst result
		_, err := c.Fetch(context.Background(), "u1:dashboard", &dst, compute)
		second <- outcome{dst, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(release)

	got := <-second
	if got.err != nil {
		t.Fatalf("waiting caller err = %v", got.err)
	}
	if got.res.Total != 5 {
		t.Errorf("waiting caller result = %+v", got.res)
	}
	if v := computeErr.Load(); v != nil {
		t.Errorf("shared compute saw cancellation: %v", v)
	}
}

func TestFetchSkipsWriteWhenInvalidatedDuringCompute(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)

	var calls int64
	compute := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			if err := c.InvalidateUser(ctx, "u1"); err != nil {
				t.Errorf("InvalidateUser: %v", err)
			}
		}
		return &result{Total: calls}, nil
	}

	var first result
	if _, err := c.Fetch(context.Background(), "u1:user", &first, compute); err != nil {
		t.Fatal(err)
	}
	if first.Total != 1 {
		t.Errorf("first = %+v", first)
	}
	if _, ok := backend.data["analytics:u1:user"]; ok {
		t.Error("result computed before the invalidation was cached")
	}

	var second result
	hit, err := c.Fetch(context.Background(), "u1:user", &second, compute)
	if err != nil || hit {
		t.Fatalf("second fetch: hit=%v err=%v", hit, err)
	}
	if calls != 2 {
		t.Errorf("compute calls = %d, want 2", calls)
	}
	if _, ok := backend.data["analytics:u1:user"]; !ok {
		t.Error("fresh result not cached")
	}
}

func TestFetchSkipsWriteWhenFlushedDuringCompute(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)

	var dst result
	_, err := c.Fetch(context.Background(), "u2:dashboard", &dst, func(ctx context.Context) (any, error) {
		if _, err := c.Invalidate(ctx); err != nil {
			t.Errorf("Invalidate: %v", err)
		}
		return &result{Total: 1}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(backend.data) != 0 {
		t.Errorf("stale entries written: %v", backend.data)
	}
}

func TestFetchComputePanicBecomesError(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)

	var dst result
	_, err := c.Fetch(context.Background(), "u1:user", &dst, func(context.Context) (any, error) {
		panic("decoder exploded")
	})
	if err == nil || !strings.Contains(err.Error(), "decoder exploded") {
		t.Errorf("err = %v", err)
	}
}
