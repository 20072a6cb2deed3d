// Package cache memoizes the counts TF-IDF scoring needs for one collection:
// its document count, the document frequency of each term, the frequency of
// each term inside each document, and each document's word count.
//
// A Statistics value is bound to a single collection and is discarded with
// it. Entries are computed lazily on first access and never recomputed, even
// if the underlying documents change afterwards; callers that need fresh
// counts must build a new Statistics.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
)

// Cache families, also used as metric labels.
const (
	FamilyDocumentCount     = "n"
	FamilyDocumentFrequency = "df"
	FamilyTermFrequency     = "f"
	FamilyWordCount         = "wc"
)

type docTerm struct {
	docID string
	term  string
}

// Statistics holds the memoized counts for one collection.
type Statistics struct {
	collection corpus.Collection
	logger     *slog.Logger
	metrics    *metrics.Metrics

	nOnce sync.Once
	n     int

	dfMu    sync.RWMutex
	df      map[string]int
	dfGroup singleflight.Group

	fMu sync.RWMutex
	f   map[docTerm]int

	wcMu sync.RWMutex
	wc   map[string]int

	hits   [4]atomic.Int64
	misses [4]atomic.Int64
}

// Option configures a Statistics.
type Option func(*Statistics)

// WithMetrics reports hits and misses to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Statistics) { s.metrics = m }
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Statistics) { s.logger = l }
}

// New returns an empty cache for collection.
func New(collection corpus.Collection, opts ...Option) *Statistics {
	s := &Statistics{
		collection: collection,
		df:         make(map[string]int),
		f:          make(map[docTerm]int),
		wc:         make(map[string]int),
		logger:     slog.Default().With("component", "statistics-cache", "collection_id", collection.ID()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the collection the cache is bound to.
func (s *Statistics) Collection() corpus.Collection {
	return s.collection
}

// DocumentCount returns the collection's document count as first observed.
func (s *Statistics) DocumentCount() int {
	computed := false
	s.nOnce.Do(func() {
		s.n = s.collection.DocumentCount()
		computed = true
	})
	s.record(FamilyDocumentCount, !computed)
	return s.n
}

// DocumentFrequency returns the number of documents in the collection that
// contain term at least once. On a miss the whole collection is enumerated,
// populating the term frequency of term for every visited document.
// Concurrent misses for the same term share one enumeration. A cancelled
// enumeration stores nothing; callers that joined it with a live context
// start another one.
func (s *Statistics) DocumentFrequency(ctx context.Context, term string) (int, error) {
	s.dfMu.RLock()
	df, ok := s.df[term]
	s.dfMu.RUnlock()
	if ok {
		s.record(FamilyDocumentFrequency, true)
		return df, nil
	}

	for {
		df, led, err := s.enumerate(ctx, term)
		if err == nil {
			return df, nil
		}
		if led || ctx.Err() != nil || !isContextError(err) {
			return 0, err
		}
		s.logger.Debug("shared enumeration was cancelled, retrying", "term", term)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// enumerate runs or joins the enumeration for term. led reports whether this
// caller's ctx drove it.
func (s *Statistics) enumerate(ctx context.Context, term string) (df int, led bool, err error) {
	val, err, _ := s.dfGroup.Do(term, func() (interface{}, error) {
		led = true
		s.dfMu.RLock()
		df, ok := s.df[term]
		s.dfMu.RUnlock()
		if ok {
			s.record(FamilyDocumentFrequency, true)
			return df, nil
		}
		s.record(FamilyDocumentFrequency, false)
		start := time.Now()
		count := 0
		visited := 0
		err := s.collection.EachDocument(func(doc corpus.Document) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			visited++
			if s.TermFrequency(doc, term) > 0 {
				count++
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("computing document frequency of %q in collection %s: %w", term, s.collection.ID(), err)
		}
		s.dfMu.Lock()
		s.df[term] = count
		s.dfMu.Unlock()
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.DocFrequencyDuration.Observe(elapsed.Seconds())
		}
		s.logger.Debug("document frequency computed",
			"term", term,
			"df", count,
			"documents_visited", visited,
			"duration", elapsed,
		)
		return count, nil
	})
	if err != nil {
		return 0, led, err
	}
	return val.(int), led, nil
}

// TermFrequency returns the number of occurrences of term in doc. Absence
// from the document's token registry counts as zero.
func (s *Statistics) TermFrequency(doc corpus.Document, term string) int {
	key := docTerm{docID: doc.ID(), term: term}
	s.fMu.RLock()
	f, ok := s.f[key]
	s.fMu.RUnlock()
	if ok {
		s.record(FamilyTermFrequency, true)
		return f
	}
	s.fMu.Lock()
	defer s.fMu.Unlock()
	if f, ok := s.f[key]; ok {
		s.record(FamilyTermFrequency, true)
		return f
	}
	f = doc.TermCount(term)
	s.f[key] = f
	s.record(FamilyTermFrequency, false)
	return f
}

// WordCount returns doc's word count as first observed.
func (s *Statistics) WordCount(doc corpus.Document) int {
	id := doc.ID()
	s.wcMu.RLock()
	wc, ok := s.wc[id]
	s.wcMu.RUnlock()
	if ok {
		s.record(FamilyWordCount, true)
		return wc
	}
	s.wcMu.Lock()
	defer s.wcMu.Unlock()
	if wc, ok := s.wc[id]; ok {
		s.record(FamilyWordCount, true)
		return wc
	}
	wc = doc.WordCount()
	s.wc[id] = wc
	s.record(FamilyWordCount, false)
	return wc
}

// FamilyStats counts lookups for one cache family.
type FamilyStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats is a snapshot of hit and miss counters keyed by family.
type Stats map[string]FamilyStats

func (s *Statistics) Stats() Stats {
	out := make(Stats, len(families))
	for i, family := range families {
		out[family] = FamilyStats{
			Hits:   s.hits[i].Load(),
			Misses: s.misses[i].Load(),
		}
	}
	return out
}

// Entries returns the number of stored document-frequency and term-frequency
// entries.
func (s *Statistics) Entries() (df, f int) {
	s.dfMu.RLock()
	df = len(s.df)
	s.dfMu.RUnlock()
	s.fMu.RLock()
	f = len(s.f)
	s.fMu.RUnlock()
	return df, f
}

var families = [4]string{FamilyDocumentCount, FamilyDocumentFrequency, FamilyTermFrequency, FamilyWordCount}

func familyIndex(family string) int {
	switch family {
	case FamilyDocumentCount:
		return 0
	case FamilyDocumentFrequency:
		return 1
	case FamilyTermFrequency:
		return 2
	default:
		return 3
	}
}

func (s *Statistics) record(family string, hit bool) {
	i := familyIndex(family)
	if hit {
		s.hits[i].Add(1)
		if s.metrics != nil {
			s.metrics.StatsCacheHitsTotal.WithLabelValues(family).Inc()
		}
		return
	}
	s.misses[i].Add(1)
	if s.metrics != nil {
		s.metrics.StatsCacheMissesTotal.WithLabelValues(family).Inc()
	}
}
