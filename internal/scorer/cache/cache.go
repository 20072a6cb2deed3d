// Package cache memoizes computed scores in Redis. Keys are namespaced by
// collection so a change to one collection drops only its scores. Redis calls
// go through a circuit breaker; while it is open the cache is bypassed.
//
// Every invalidation bumps a generation counter. A score computed across an
// invalidation of its collection is returned to the caller but never stored.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termstats/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "score:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one score request.
type Key struct {
	CollectionID string
	DocumentID   string
	Term         string
	Language     string
	Method       string
	Options      map[string]any
}

type ScoreCache struct {
	client  Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	// genMu is held for reading while a computed score is stored and for
	// writing while a flush runs, so no store lands between a generation bump
	// and its flush.
	genMu   sync.RWMutex
	allGen  uint64
	collGen map[string]uint64
}

// generation identifies the invalidation state a score was computed under.
type generation struct {
	all        uint64
	collection uint64
}

type Option func(*ScoreCache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ScoreCache) { c.metrics = m }
}

// WithBreaker overrides the circuit breaker settings guarding Redis calls.
// A nil IsFailure ignores key misses and cancelled requests.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *ScoreCache) { c.breaker = newBreaker(cfg) }
}

func newBreaker(cfg resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool {
			return !pkgredis.IsNilError(err) && !errors.Is(err, context.Canceled)
		}
	}
	return resilience.NewCircuitBreaker("score-cache", cfg)
}

func New(client Store, cfg config.RedisConfig, opts ...Option) *ScoreCache {
	c := &ScoreCache{
		client:  client,
		ttl:     cfg.CacheTTL,
		breaker: newBreaker(resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "score-cache"),
		collGen: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a cached score. Lookup failures are logged and reported as a
// miss.
func (c *ScoreCache) Get(ctx context.Context, key Key) (float64, bool) {
	redisKey := buildKey(key)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, redisKey)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", redisKey, "error", err)
		}
		c.recordMiss()
		return 0, false
	}
	score, err := strconv.ParseFloat(data, 64)
	if err != nil {
		c.logger.Error("cache value unparsable", "key", redisKey, "error", err)
		c.recordMiss()
		return 0, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.ScoreCacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", redisKey)
	return score, true
}

func (c *ScoreCache) Set(ctx context.Context, key Key, score float64) {
	redisKey := buildKey(key)
	err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, redisKey, strconv.FormatFloat(score, 'f', -1, 64), c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", redisKey, "error", err)
	}
}

// GetOrCompute returns the cached score or computes, stores, and returns it.
// Concurrent misses for the same key share one computation. Errors are never
// cached, and neither is a score whose collection was invalidated while it
// was being computed.
func (c *ScoreCache) GetOrCompute(ctx context.Context, key Key, compute func() (float64, error)) (float64, bool, error) {
	if score, ok := c.Get(ctx, key); ok {
		return score, true, nil
	}
	gen := c.generation(key.CollectionID)
	flightKey := fmt.Sprintf("%s@%d.%d", buildKey(key), gen.all, gen.collection)
	val, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		score, err := compute()
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(ctx, key, gen, score)
		return score, nil
	})
	if err != nil {
		return 0, false, err
	}
	return val.(float64), false, nil
}

func (c *ScoreCache) generation(collectionID string) generation {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return generation{all: c.allGen, collection: c.collGen[collectionID]}
}

func (c *ScoreCache) storeIfCurrent(ctx context.Context, key Key, gen generation, score float64) {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if c.allGen != gen.all || c.collGen[key.CollectionID] != gen.collection {
		c.logger.Debug("collection invalidated during compute, score not stored", "collection_id", key.CollectionID)
		return
	}
	c.Set(ctx, key, score)
}

// InvalidateCollection deletes every cached score of one collection.
func (c *ScoreCache) InvalidateCollection(ctx context.Context, collectionID string) error {
	return c.flush(ctx, keyPrefix+collectionID+":*", collectionID)
}

// Invalidate deletes every cached score.
func (c *ScoreCache) Invalidate(ctx context.Context) error {
	return c.flush(ctx, keyPrefix+"*", "")
}

// flush bumps the generation even when Redis fails, so in-flight computes
// for the collection still skip their store.
func (c *ScoreCache) flush(ctx context.Context, pattern, collectionID string) error {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if collectionID == "" {
		c.allGen++
	} else {
		c.collGen[collectionID]++
	}

	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.client.FlushByPattern(ctx, pattern)
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating score cache: %w", err)
	}
	c.logger.Info("cache invalidate", "collection_id", collectionID, "keys_deleted", deleted)
	return nil
}

func (c *ScoreCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Breaker reports the circuit guarding Redis.
func (c *ScoreCache) Breaker() resilience.Snapshot {
	return c.breaker.Snapshot()
}

func (c *ScoreCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.ScoreCacheMissesTotal.Inc()
	}
}

// buildKey hashes everything but the collection id, which stays readable so
// a collection's keys can be matched by pattern.
func buildKey(k Key) string {
	raw := fmt.Sprintf("doc=%s|term=%s|lang=%s|method=%s|%s",
		k.DocumentID, strings.ToLower(strings.TrimSpace(k.Term)), k.Language, k.Method, canonicalOptions(k.Options))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, k.CollectionID, hash[:16])
}

func canonicalOptions(opts map[string]any) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, opts[k]))
	}
	return strings.Join(parts, "&")
}
