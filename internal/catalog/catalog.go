// Package catalog owns the named collections the scorer serves. Each
// collection carries its own statistics cache, which is discarded whenever
// the collection's membership changes.
package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
)

// Summary describes one collection for listing.
type Summary struct {
	ID        string `json:"id"`
	Documents int    `json:"documents"`
	CachedDF  int    `json:"cached_df"`
	CachedF   int    `json:"cached_f"`
}

type Catalog struct {
	mu              sync.RWMutex
	collections     map[string]*corpus.MemoryCollection
	caches          *cache.ByCollection
	tokenOpts       tokenizer.Options
	defaultLanguage string
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

type Option func(*Catalog)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

func WithTokenizerOptions(opts tokenizer.Options) Option {
	return func(c *Catalog) { c.tokenOpts = opts }
}

// WithDefaultLanguage sets the language recorded for documents ingested
// without one.
func WithDefaultLanguage(language string) Option {
	return func(c *Catalog) { c.defaultLanguage = language }
}

func New(opts ...Option) *Catalog {
	c := &Catalog{
		collections: make(map[string]*corpus.MemoryCollection),
		logger:      slog.Default().With("component", "catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	var cacheOpts []cache.Option
	if c.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(c.metrics))
	}
	c.caches = cache.NewByCollection(cacheOpts...)
	return c
}

// AddDocument tokenizes text and stores it under collectionID, creating the
// collection on first use. A document with the same id is replaced. It
// returns the stored document and whether a document was replaced.
func (c *Catalog) AddDocument(collectionID, documentID, language, text string) (*corpus.MemoryDocument, bool, error) {
	collectionID, doc, err := c.PrepareDocument(collectionID, documentID, language, text)
	if err != nil {
		return nil, false, err
	}
	return doc, c.PutDocument(collectionID, doc), nil
}

// PrepareDocument validates the identifiers and tokenizes text without
// changing any collection. It returns the trimmed collection id.
func (c *Catalog) PrepareDocument(collectionID, documentID, language, text string) (string, *corpus.MemoryDocument, error) {
	collectionID = strings.TrimSpace(collectionID)
	documentID = strings.TrimSpace(documentID)
	if collectionID == "" || documentID == "" {
		return "", nil, apperrors.New(apperrors.ErrInvalidInput, 400, "collection_id and document_id are required")
	}
	if language == "" {
		language = c.defaultLanguage
	}
	return collectionID, corpus.NewDocument(documentID, language, text, c.tokenOpts), nil
}

// PutDocument stores a prepared document and discards the collection's
// statistics. It reports whether a document was replaced.
func (c *Catalog) PutDocument(collectionID string, doc *corpus.MemoryDocument) bool {
	c.mu.Lock()
	coll, ok := c.collections[collectionID]
	if !ok {
		coll = corpus.NewCollection(collectionID)
		c.collections[collectionID] = coll
	}
	replaced := coll.Put(doc)
	c.caches.Discard(coll)
	count := coll.DocumentCount()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.CollectionDocumentCount.WithLabelValues(collectionID).Set(float64(count))
	}
	c.logger.Debug("document stored",
		"collection_id", collectionID,
		"document_id", doc.ID(),
		"word_count", doc.WordCount(),
		"replaced", replaced,
	)
	return replaced
}

// Collection returns the collection registered under id.
func (c *Catalog) Collection(id string) (corpus.Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coll, ok := c.collections[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrCollectionNotFound, id)
	}
	return coll, nil
}

// Document resolves a document and the collection that holds it.
func (c *Catalog) Document(collectionID, documentID string) (corpus.Collection, corpus.Document, error) {
	c.mu.RLock()
	coll, ok := c.collections[collectionID]
	c.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", apperrors.ErrCollectionNotFound, collectionID)
	}
	doc, ok := coll.Document(documentID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q in collection %q", apperrors.ErrDocumentNotFound, documentID, collectionID)
	}
	return coll, doc, nil
}

// Statistics returns the statistics cache owned by coll.
func (c *Catalog) Statistics(coll corpus.Collection) *cache.Statistics {
	return c.caches.Statistics(coll)
}

// DiscardStatistics drops the cached statistics of the named collection, or
// of every collection when id is empty. It returns the number discarded.
func (c *Catalog) DiscardStatistics(id string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id != "" {
		coll, ok := c.collections[id]
		if !ok {
			return 0, fmt.Errorf("%w: %q", apperrors.ErrCollectionNotFound, id)
		}
		c.caches.Discard(coll)
		return 1, nil
	}
	for _, coll := range c.collections {
		c.caches.Discard(coll)
	}
	return len(c.collections), nil
}

// Collections returns a summary of every collection sorted by id.
func (c *Catalog) Collections() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Summary, 0, len(c.collections))
	for id, coll := range c.collections {
		s := Summary{ID: id, Documents: coll.DocumentCount()}
		if stats, ok := c.caches.Peek(coll); ok {
			s.CachedDF, s.CachedF = stats.Entries()
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CacheStats aggregates hit and miss counts across all live caches.
func (c *Catalog) CacheStats() cache.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := cache.Stats{}
	for _, coll := range c.collections {
		stats, ok := c.caches.Peek(coll)
		if !ok {
			continue
		}
		for family, fs := range stats.Stats() {
			agg := total[family]
			agg.Hits += fs.Hits
			agg.Misses += fs.Misses
			total[family] = agg
		}
	}
	return total
}
