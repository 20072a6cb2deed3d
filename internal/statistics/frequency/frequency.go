// Package frequency reports how often a term occurs in its document, using
// the same per-collection statistics cache as TF-IDF scoring.
package frequency

import (
	"context"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
)

// Method is the name the worker is registered under in the statistics
// category.
const Method = "frequency_in"

// CacheSource supplies the statistics cache owned by a collection.
type CacheSource interface {
	Statistics(c corpus.Collection) *cache.Statistics
}

// Worker returns the term frequency of a query, optionally divided by the
// document's word count when corpus.OptionNormalizeWordCount is true.
type Worker struct {
	caches CacheSource
	stem   bool
}

type Option func(*Worker)

// WithStemming stems query terms, matching documents tokenized with stemming.
func WithStemming(stem bool) Option {
	return func(w *Worker) { w.stem = stem }
}

func NewWorker(caches CacheSource, opts ...Option) *Worker {
	w := &Worker{caches: caches}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Statistics(ctx context.Context, q corpus.TermQuery, opts map[string]any) (float64, error) {
	if q.Document == nil || q.Collection == nil {
		return 0, apperrors.MissingParentError()
	}
	normalize := false
	if v, ok := opts[corpus.OptionNormalizeWordCount]; ok {
		switch b := v.(type) {
		case bool:
			normalize = b
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return 0, apperrors.InvalidOptionError(corpus.OptionNormalizeWordCount, v, "expected a boolean")
			}
			normalize = parsed
		default:
			return 0, apperrors.InvalidOptionError(corpus.OptionNormalizeWordCount, v, "expected a boolean")
		}
	}
	stats := w.caches.Statistics(q.Collection)
	term := tokenizer.Normalize(q.Value)
	if w.stem {
		term = tokenizer.Stem(term)
	}
	f := float64(stats.TermFrequency(q.Document, term))
	if normalize {
		if wc := stats.WordCount(q.Document); wc > 0 {
			f /= float64(wc)
		}
	}
	return f, nil
}
