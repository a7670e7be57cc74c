// Command analytics starts the QuickTask analytics service.
//
// It reads tasks from the configured store (MongoDB by default, PostgreSQL
// optionally), computes per-user completion, productivity and dashboard
// statistics, and serves them over HTTP. A Redis result cache and a Kafka
// request-event stream can be switched on in the config.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics/cache"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/router"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/store"
	mongostore "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/store/mongo"
	pgstore "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/store/postgres"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/mongo"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics, prometheus.DefaultGatherer, cfg.Server.ShutdownTimeout); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	checker := health.NewChecker()

	taskStore, closeStore, err := openStore(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open task store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	checker.Register(cfg.Store.Driver, health.PingCheck(taskStore.Ping, true))

	// Result cache (optional).
	var resultCache analytics.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
		slog.Info("result cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	// Request events and cache invalidation over Kafka (optional).
	var tracker analytics.Tracker
	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Kafka.BufferSize, m)
		collector.Start(ctx)
		tracker = collector
		slog.Info("request event collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

		if resultCache != nil {
			consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.TaskEvents, analytics.HandleTaskEvent(resultCache))
			defer consumer.Close()
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("task event consumer error", "error", err)
				}
			}()
			slog.Info("cache invalidation consumer started", "topic", cfg.Kafka.Topics.TaskEvents)
		}
	}

	svc := analytics.NewService(taskStore, resultCache, tracker, cfg.Analytics)
	handler := router.New(analytics.NewHandler(svc), checker, cfg, m)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-idle

	if collector != nil {
		collector.Close()
	}
	slog.Info("analytics service stopped")
}

// openStore connects the configured backend and wraps it with query metrics.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*store.Instrumented, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				slog.Error("closing postgres", "error", err)
			}
		}
		return store.NewInstrumented(pgstore.New(db), m), closeFn, nil
	default:
		client, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				slog.Error("closing mongo", "error", err)
			}
		}
		return store.NewInstrumented(mongostore.New(client, cfg.Mongo.QueryTimeout), m), closeFn, nil
	}
}
