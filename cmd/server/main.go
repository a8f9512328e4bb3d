package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amlcore/internal/aml/events"
	"amlcore/internal/aml/events/kafka"
	"amlcore/internal/aml/handler"
	"amlcore/internal/aml/orchestrator"
	"amlcore/internal/aml/orchestrator/directory"
	riskmetrics "amlcore/internal/aml/risk/metrics"
	riskservice "amlcore/internal/aml/risk/service"
	riskstore "amlcore/internal/aml/risk/store"
	sarmetrics "amlcore/internal/aml/sar/metrics"
	sarservice "amlcore/internal/aml/sar/service"
	sarstore "amlcore/internal/aml/sar/store"
	screeningmetrics "amlcore/internal/aml/screening/metrics"
	screeningservice "amlcore/internal/aml/screening/service"
	screeningstore "amlcore/internal/aml/screening/store"
	"amlcore/internal/platform/config"
	"amlcore/internal/platform/httpserver"
	"amlcore/internal/platform/logger"
	"amlcore/internal/platform/metrics"
	"amlcore/internal/platform/postgres"
	"amlcore/internal/platform/redis"
	ratelimitmetrics "amlcore/internal/ratelimit/metrics"
	ratelimit "amlcore/internal/ratelimit/middleware"
	"amlcore/internal/ratelimit/store/bucket"
	"amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/audit/publisher"
	auditmemory "amlcore/pkg/platform/audit/store/memory"
	auditpostgres "amlcore/pkg/platform/audit/store/postgres"
	"amlcore/pkg/platform/circuit"
	"amlcore/pkg/platform/middleware/metadata"
	"amlcore/pkg/platform/middleware/requesttime"
	"amlcore/pkg/platform/tx"
)

const ledgerBuffer = 1024

// main wires the engines to their stores, exposes the HTTP router and keeps
// the server lifecycle small. Business logic lives in internal/aml.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise infrastructure", "error", err)
		os.Exit(1)
	}
	defer infra.close(log)

	router, err := buildRouter(cfg, infra, log)
	if err != nil {
		log.Error("failed to build services", "error", err)
		infra.close(log)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting amlcore",
		"addr", cfg.Addr,
		"postgres", infra.db != nil,
		"redis", infra.redis != nil,
		"kafka", infra.kafka != nil,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// infrastructure holds the optional backing services. A nil field selects
// the in-process implementation.
type infrastructure struct {
	db     *sql.DB
	redis  *redis.Client
	kafka  *kafka.Publisher
	ledger *publisher.Publisher
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	infra.db = db
	if db != nil && cfg.Postgres.RunMigrations {
		if err := postgres.Migrate(db, log); err != nil {
			infra.close(log)
			return nil, err
		}
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		infra.close(log)
		return nil, err
	}
	infra.redis = rc

	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.New(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		}, kafka.WithLogger(log))
		if err != nil {
			infra.close(log)
			return nil, err
		}
		infra.kafka = p
		if err := p.EnsureTopic(ctx); err != nil {
			log.Warn("could not ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
		}
	}

	var ledgerStore audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		ledgerStore = auditpostgres.New(db)
	}
	infra.ledger = publisher.NewPublisher(ledgerStore,
		publisher.WithAsyncBuffer(ledgerBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
		publisher.WithBreaker(circuit.New("ledger")),
	)
	return infra, nil
}

func (i *infrastructure) close(log *slog.Logger) {
	if i.ledger != nil {
		i.ledger.Close()
	}
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("failed to close postgres", "error", err)
		}
	}
}

func buildRouter(cfg config.Server, infra *infrastructure, log *slog.Logger) (http.Handler, error) {
	var bus events.Publisher = events.Discard{}
	if infra.kafka != nil {
		bus = infra.kafka
	}
	locker := tx.NewShardedLocker(0)

	watchlist := screeningstore.NewWatchlistStore()
	if cfg.AML.WatchlistFile != "" {
		if err := watchlist.LoadWatchlistFile(cfg.AML.WatchlistFile); err != nil {
			return nil, err
		}
		log.Info("watchlist loaded", "file", cfg.AML.WatchlistFile, "lists", watchlist.Lists())
	}
	screeningMetrics := screeningmetrics.New()
	var cache screeningservice.Cache = screeningstore.NewInMemoryCache()
	if infra.redis != nil {
		cache = screeningstore.NewRedisCache(infra.redis.Client, screeningMetrics)
	}
	screening, err := screeningservice.New(screeningstore.NewInMemoryResultStore(), watchlist,
		screeningservice.WithLogger(log),
		screeningservice.WithMetrics(screeningMetrics),
		screeningservice.WithCache(cache),
		screeningservice.WithCacheTTL(cfg.AML.ScreeningCacheTTL),
		screeningservice.WithMatchThreshold(cfg.AML.MatchThreshold),
		screeningservice.WithAuditPublisher(infra.ledger),
		screeningservice.WithLocker(locker),
	)
	if err != nil {
		return nil, err
	}

	var profiles riskservice.ProfileStore = riskstore.NewInMemory()
	var sars sarservice.Store = sarstore.NewInMemory()
	if infra.db != nil {
		profiles = riskstore.NewPostgres(infra.db)
		sars = sarstore.NewPostgres(infra.db)
	}

	risk, err := riskservice.New(profiles,
		riskservice.WithLogger(log),
		riskservice.WithMetrics(riskmetrics.New()),
		riskservice.WithPublisher(bus),
		riskservice.WithAuditPublisher(infra.ledger),
		riskservice.WithLocker(locker),
		riskservice.WithHighRiskZones(cfg.AML.HighRiskZones),
	)
	if err != nil {
		return nil, err
	}

	sarSvc, err := sarservice.New(sars,
		sarservice.WithLogger(log),
		sarservice.WithMetrics(sarmetrics.New()),
		sarservice.WithPublisher(bus),
		sarservice.WithAuditPublisher(infra.ledger),
		sarservice.WithDeadlineDays(int(cfg.AML.SARDeadline/(24*time.Hour))),
	)
	if err != nil {
		return nil, err
	}

	pipeline, err := orchestrator.New(directory.NewMemory(), screening, risk, orchestrator.WithLogger(log))
	if err != nil {
		return nil, err
	}

	var buckets ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	if infra.redis != nil {
		buckets = bucket.NewRedisStore(infra.redis.Client)
	}
	throttle := ratelimit.New(buckets, cfg.AML.ScreeningLimit.Limit, cfg.AML.ScreeningLimit.Window,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	)

	httpMetrics := metrics.New()
	r := chi.NewRouter()
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.New(screening, risk, sarSvc, pipeline, log,
		handler.WithScreeningThrottle(throttle.RateLimit("screening")),
	).Register(r)
	return r, nil
}
