// Package tfidf scores a term occurring in a document of a collection with a
// TF-IDF weight. Weighting functions come from an algorithm registry and the
// counts behind them from a statistics cache owned per collection.
package tfidf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/language"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/algorithm"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/resilience"
)

// minTermLength is the longest term, in characters, that always scores 0.
const minTermLength = 2

// CacheSource supplies the statistics cache owned by a collection.
type CacheSource interface {
	Statistics(c corpus.Collection) *cache.Statistics
}

// Engine computes TF-IDF scores.
type Engine struct {
	registry           *algorithm.Registry
	lexicon            *language.Lexicon
	caches             CacheSource
	metrics            *metrics.Metrics
	enumerationTimeout time.Duration
	stem               bool
	logger             *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithRegistry(r *algorithm.Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

func WithLexicon(l *language.Lexicon) EngineOption {
	return func(e *Engine) { e.lexicon = l }
}

// WithCacheSource makes the engine use caches owned elsewhere, typically by
// a catalog that discards them when a collection changes.
func WithCacheSource(src CacheSource) EngineOption {
	return func(e *Engine) { e.caches = src }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithEnumerationTimeout bounds each document-frequency computation. Zero
// means no bound beyond the caller's context.
func WithEnumerationTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.enumerationTimeout = d }
}

// WithStemming stems terms before looking up their counts, matching documents
// tokenized with stemming. Common-word and length checks still see the
// unstemmed term.
func WithStemming(stem bool) EngineOption {
	return func(e *Engine) { e.stem = stem }
}

// New returns an engine using the default algorithm registry, the builtin
// common-word lists and one statistics cache per collection instance.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		registry: algorithm.Default,
		logger:   slog.Default().With("component", "tfidf"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lexicon == nil {
		e.lexicon = language.NewLexicon(language.Builtin())
	}
	if e.caches == nil {
		var cacheOpts []cache.Option
		if e.metrics != nil {
			cacheOpts = append(cacheOpts, cache.WithMetrics(e.metrics))
		}
		e.caches = cache.NewByCollection(cacheOpts...)
	}
	return e
}

// Score returns the TF-IDF weight of q.Value in q.Document relative to
// q.Collection, rounded to opts.Precision decimal digits.
//
// Common words (when opts.RemoveCommonWords is set) and terms of two
// characters or fewer score 0 without touching any statistics. The result
// is the absolute value of tf*idf: under the logarithmic IDF a term found in
// most documents has a negative IDF, and its sign is dropped.
func (e *Engine) Score(ctx context.Context, q corpus.TermQuery, opts Options) (float64, error) {
	start := time.Now()
	score, outcome, err := e.score(ctx, q, opts)
	e.observe(outcome, start)
	if err != nil {
		return 0, err
	}
	return score, nil
}

// Forget drops the statistics the engine holds for c. It is a no-op when the
// caches are owned by a CacheSource that does not support discarding.
func (e *Engine) Forget(c corpus.Collection) {
	if d, ok := e.caches.(interface{ Discard(corpus.Collection) }); ok {
		d.Discard(c)
	}
}

func (e *Engine) observe(outcome string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ScoresTotal.WithLabelValues(outcome).Inc()
		e.metrics.ScoreLatency.Observe(time.Since(start).Seconds())
	}
}

// filter returns the normalized term and, when the term scores 0 without
// any statistics, the outcome explaining why.
func (e *Engine) filter(q corpus.TermQuery, removeCommonWords bool) (term, outcome string) {
	term = tokenizer.Normalize(q.Value)
	if removeCommonWords && e.lexicon.IsCommon(q.Language, term) {
		return term, metrics.OutcomeCommonWord
	}
	if utf8.RuneCountInString(term) <= minTermLength {
		return term, metrics.OutcomeShortTerm
	}
	return term, ""
}

func (e *Engine) score(ctx context.Context, q corpus.TermQuery, opts Options) (float64, string, error) {
	term, outcome := e.filter(q, opts.RemoveCommonWords)
	if outcome != "" {
		return 0, outcome, nil
	}
	if e.stem {
		term = tokenizer.Stem(term)
	}
	if opts.Precision < 0 {
		return 0, metrics.OutcomeError, apperrors.InvalidOptionError(KeyPrecision, opts.Precision, "must be >= 0")
	}

	tfFn, err := e.registry.ResolveTF(opts.TF)
	if err != nil {
		return 0, metrics.OutcomeError, err
	}
	idfFn, err := e.registry.ResolveIDF(opts.IDF)
	if err != nil {
		return 0, metrics.OutcomeError, err
	}
	if opts.Normalization != "" {
		if _, err := e.registry.Resolve(algorithm.Family(KeyNormalization), opts.Normalization); err != nil {
			return 0, metrics.OutcomeError, err
		}
	}

	if q.Document == nil || q.Collection == nil {
		return 0, metrics.OutcomeError, apperrors.MissingParentError()
	}

	stats := e.caches.Statistics(q.Collection)
	n := stats.DocumentCount()
	var df int
	err = resilience.WithTimeout(ctx, e.enumerationTimeout, "document-frequency", func(ctx context.Context) error {
		var err error
		df, err = stats.DocumentFrequency(ctx, term)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
		}
		return 0, metrics.OutcomeError, err
	}
	f := stats.TermFrequency(q.Document, term)

	tf := tfFn(float64(f))
	if opts.NormalizeWordCount {
		// The transformed value is divided, not the raw count.
		if wc := stats.WordCount(q.Document); wc > 0 {
			tf /= float64(wc)
		}
	}
	idf := idfFn(float64(n), float64(df))
	score := Round(math.Abs(tf*idf), opts.Precision)

	e.logger.Debug("term scored",
		"term", term,
		"collection_id", q.Collection.ID(),
		"doc_id", q.Document.ID(),
		"n", n,
		"df", df,
		"f", f,
		"tf", tf,
		"idf", idf,
		"score", score,
	)
	return score, metrics.OutcomeScored, nil
}

// Round rounds v half away from zero to precision decimal digits.
func Round(v float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	scaled := v * pow
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return v
	}
	return math.Round(scaled) / pow
}
