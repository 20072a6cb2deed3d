package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/capability"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/scorer/cache"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/algorithm"
	statscache "github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/cache"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/tracing"
)

// optionParams are the query parameters passed through to the statistics
// worker as options.
var optionParams = []string{
	tfidf.KeyTF,
	tfidf.KeyIDF,
	tfidf.KeyNormalization,
	tfidf.KeyRemoveCommonWords,
	tfidf.KeyPrecision,
	tfidf.KeyNormalizeWordCount,
}

// Catalog is the subset of the collection catalog the handler reads.
type Catalog interface {
	Document(collectionID, documentID string) (corpus.Collection, corpus.Document, error)
	Collections() []catalog.Summary
	CacheStats() statscache.Stats
	DiscardStatistics(id string) (int, error)
}

// ScoreResponse is the body returned by the score endpoint.
type ScoreResponse struct {
	CollectionID string  `json:"collection_id"`
	DocumentID   string  `json:"document_id"`
	Term         string  `json:"term"`
	Method       string  `json:"method"`
	Score        float64 `json:"score"`
	CacheHit     bool    `json:"cache_hit"`
	LatencyMs    float64 `json:"latency_ms"`
}

// Config holds request defaults.
type Config struct {
	DefaultMethod   string
	DefaultLanguage string
}

type Handler struct {
	catalog      Catalog
	capabilities *capability.Registry
	algorithms   *algorithm.Registry
	cache        *cache.ScoreCache
	cfg          Config
	logger       *slog.Logger
}

// New creates a Handler. scoreCache may be nil when Redis is unavailable.
func New(cat Catalog, capabilities *capability.Registry, algorithms *algorithm.Registry, scoreCache *cache.ScoreCache, cfg Config) *Handler {
	if cfg.DefaultMethod == "" {
		cfg.DefaultMethod = tfidf.Method
	}
	return &Handler{
		catalog:      cat,
		capabilities: capabilities,
		algorithms:   algorithms,
		cache:        scoreCache,
		cfg:          cfg,
		logger:       slog.Default().With("component", "score-handler"),
	}
}

// Score computes a statistic for one term occurrence.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "score")
	log := logger.FromContext(ctx)
	var err error
	defer func() {
		span.End(err)
		span.Log(ctx, log)
	}()
	params := r.URL.Query()

	collectionID := params.Get("collection")
	documentID := params.Get("document")
	term := params.Get("term")
	if collectionID == "" || documentID == "" || term == "" {
		h.writeError(w, http.StatusBadRequest, "query parameters 'collection', 'document' and 'term' are required")
		return
	}
	language := params.Get("language")
	if language == "" {
		language = h.cfg.DefaultLanguage
	}
	method := params.Get("method")
	if method == "" {
		method = h.cfg.DefaultMethod
	}
	opts := make(map[string]any)
	for _, key := range optionParams {
		if params.Has(key) {
			opts[key] = params.Get(key)
		}
	}

	span.SetAttr("collection_id", collectionID)
	span.SetAttr("method", method)

	worker, err := h.capabilities.Statistics(method)
	if err != nil {
		h.fail(w, log, err, "method", method)
		return
	}
	coll, doc, err := h.catalog.Document(collectionID, documentID)
	if err != nil {
		h.fail(w, log, err, "collection_id", collectionID, "document_id", documentID)
		return
	}
	q := corpus.TermQuery{Value: term, Language: language, Document: doc, Collection: coll}
	compute := func() (float64, error) {
		computeCtx, computeSpan := tracing.Start(ctx, "compute")
		v, err := worker.Statistics(computeCtx, q, opts)
		computeSpan.End(err)
		return v, err
	}

	var score float64
	cacheHit := false
	if h.cache != nil {
		cacheCtx, cacheSpan := tracing.Start(ctx, "score-cache")
		score, cacheHit, err = h.cache.GetOrCompute(cacheCtx, cache.Key{
			CollectionID: collectionID,
			DocumentID:   documentID,
			Term:         term,
			Language:     language,
			Method:       method,
			Options:      opts,
		}, compute)
		cacheSpan.SetAttr("cache_hit", cacheHit)
		cacheSpan.End(err)
	} else {
		score, err = compute()
	}
	if err != nil {
		h.fail(w, log, err, "collection_id", collectionID, "document_id", documentID, "term", term)
		return
	}

	latency := time.Since(start)
	log.Info("score computed",
		"collection_id", collectionID,
		"document_id", documentID,
		"term", term,
		"method", method,
		"score", score,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, ScoreResponse{
		CollectionID: collectionID,
		DocumentID:   documentID,
		Term:         term,
		Method:       method,
		Score:        score,
		CacheHit:     cacheHit,
		LatencyMs:    float64(latency.Microseconds()) / 1000,
	})
}

// Collections lists the collections and their cached statistics.
func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"collections": h.catalog.Collections()})
}

// Algorithms lists the registered weighting functions and statistics methods.
func (h *Handler) Algorithms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"tf":      h.algorithms.Names(algorithm.FamilyTF),
		"idf":     h.algorithms.Names(algorithm.FamilyIDF),
		"methods": map[string][]string{string(capability.CategoryStatistics): h.capabilities.Methods(capability.CategoryStatistics)},
	})
}

// CacheStats reports the statistics caches and, when enabled, the score
// cache.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"statistics": h.catalog.CacheStats()}
	if h.cache == nil {
		body["scores"] = map[string]string{"status": "disabled"}
		h.writeJSON(w, http.StatusOK, body)
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	body["scores"] = map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.Breaker(),
	}
	h.writeJSON(w, http.StatusOK, body)
}

// CacheInvalidate drops cached statistics and scores, for one collection
// when ?collection= is given and for all otherwise.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	collectionID := r.URL.Query().Get("collection")

	discarded, err := h.catalog.DiscardStatistics(collectionID)
	if err != nil {
		h.fail(w, log, err, "collection_id", collectionID)
		return
	}
	scores := "disabled"
	if h.cache != nil {
		if collectionID != "" {
			err = h.cache.InvalidateCollection(ctx, collectionID)
		} else {
			err = h.cache.Invalidate(ctx)
		}
		if err != nil {
			log.Error("score cache invalidation failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
			return
		}
		scores = "invalidated"
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":               "invalidated",
		"statistics_discarded": discarded,
		"scores":               scores,
	})
}

// fail maps err to a status code and writes it. Configuration errors carry
// their message to the caller; other failures are logged and summarized.
func (h *Handler) fail(w http.ResponseWriter, log *slog.Logger, err error, attrs ...any) {
	status := apperrors.HTTPStatusCode(err)
	var cfgErr *apperrors.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		log.Warn("score request rejected", append(attrs, "kind", cfgErr.Kind.String(), "error", err)...)
		h.writeJSON(w, status, map[string]string{
			"error": cfgErr.Message,
			"kind":  cfgErr.Kind.String(),
		})
	case status == http.StatusNotFound:
		h.writeError(w, status, err.Error())
	case errors.Is(err, context.Canceled):
		log.Info("score request cancelled", attrs...)
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		log.Error("score request failed", append(attrs, "error", err)...)
		h.writeError(w, status, "score computation failed")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
