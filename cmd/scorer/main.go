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

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/capability"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/language"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/scorer/cache"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/scorer/handler"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/algorithm"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/frequency"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/tfidf"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termstats/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/scorer.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging)
	slog.Info("starting scorer service",
		"port", cfg.Server.Port,
		"tf", cfg.Scoring.TF,
		"idf", cfg.Scoring.IDF,
		"precision", cfg.Scoring.Precision,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	provider := language.Builtin()
	if cfg.Scoring.LanguageFile != "" {
		if err := provider.LoadFile(cfg.Scoring.LanguageFile); err != nil {
			slog.Error("failed to load common-word lists", "path", cfg.Scoring.LanguageFile, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("common-word lists loaded", "languages", provider.Languages())

	cat := catalog.New(
		catalog.WithMetrics(m),
		catalog.WithTokenizerOptions(tokenizer.Options{Stem: cfg.Scoring.StemTokens}),
		catalog.WithDefaultLanguage(cfg.Scoring.DefaultLanguage),
	)

	engine := tfidf.New(
		tfidf.WithRegistry(algorithm.Default),
		tfidf.WithLexicon(language.NewLexicon(provider)),
		tfidf.WithCacheSource(cat),
		tfidf.WithMetrics(m),
		tfidf.WithEnumerationTimeout(cfg.Scoring.EnumerationTimeout),
		tfidf.WithStemming(cfg.Scoring.StemTokens),
	)
	capabilities := capability.NewRegistry()
	if err := capabilities.RegisterStatistics(tfidf.Method, tfidf.NewWorker(engine, tfidf.OptionsFromConfig(cfg.Scoring))); err != nil {
		slog.Error("failed to register statistics worker", "method", tfidf.Method, "error", err)
		os.Exit(1)
	}
	if err := capabilities.RegisterStatistics(frequency.Method, frequency.NewWorker(cat, frequency.WithStemming(cfg.Scoring.StemTokens))); err != nil {
		slog.Error("failed to register statistics worker", "method", frequency.Method, "error", err)
		os.Exit(1)
	}

	applierOpts := []consumer.Option{consumer.WithMetrics(m)}

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate postgres", "error", err)
			os.Exit(1)
		}
		store := catalog.NewPostgresStore(db)
		if _, err := catalog.Restore(ctx, cat, store, resilience.RetryConfig{MaxAttempts: 5}); err != nil {
			slog.Error("failed to restore catalog", "error", err)
			os.Exit(1)
		}
		applierOpts = append(applierOpts, consumer.WithStore(store))
	}

	var scoreCache *cache.ScoreCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, score caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		scoreCache = cache.New(redisClient, cfg.Redis,
			cache.WithMetrics(m),
			cache.WithBreaker(resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
				OnStateChange: func(name string, from, to resilience.State) {
					slog.Warn("score cache circuit changed", "breaker", name, "from", from.String(), "to", to.String())
				},
			}),
		)
		applierOpts = append(applierOpts, consumer.WithInvalidator(scoreCache))
		slog.Info("score cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	applier := consumer.New(cat, applierOpts...)
	var pub *publisher.Publisher
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.DocumentIngest
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		pub = publisher.NewKafka(producer)

		documentConsumer := kafka.NewConsumer(cfg.Kafka, topic, applier.HandleMessage())
		go func() {
			if err := documentConsumer.Start(ctx); err != nil {
				slog.Error("document consumer error", "error", err)
			}
		}()
		slog.Info("kafka ingestion enabled", "topic", topic, "brokers", cfg.Kafka.Brokers)
	} else {
		pub = publisher.NewDirect(applier)
		slog.Info("kafka disabled, documents are applied directly")
	}

	checker := health.NewChecker()
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d collections", len(cat.Collections()))}
	})
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
		checker.Register("score-cache", health.BreakerCheck(scoreCache.Breaker))
	} else {
		checker.Register("redis", health.PingCheck(nil, false))
	}

	h := handler.New(cat, capabilities, algorithm.Default, scoreCache, handler.Config{
		DefaultMethod:   tfidf.Method,
		DefaultLanguage: cfg.Scoring.DefaultLanguage,
	})
	ih := ingesthandler.New(pub)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/score", h.Score)
	mux.HandleFunc("GET /api/v1/collections", h.Collections)
	mux.HandleFunc("GET /api/v1/algorithms", h.Algorithms)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/documents", ih.Ingest)
	mux.HandleFunc("POST /api/v1/documents/batch", ih.IngestBatch)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scorer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scorer service stopped")
}
