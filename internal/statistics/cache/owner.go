package cache

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
)

// ByCollection hands out one Statistics per collection instance. Collections
// are keyed by identity, not by ID, so two collections that happen to share
// an ID never see each other's counts. A collection that cannot be used as a
// map key (a value type holding a slice or map) gets a fresh, unshared cache
// on every call. Caches live until Discard; owners of short-lived collections
// must discard them.
type ByCollection struct {
	mu     sync.Mutex
	stats  map[corpus.Collection]*Statistics
	opts   []Option
	warned sync.Once
}

// NewByCollection returns an empty set; opts apply to every cache it creates.
func NewByCollection(opts ...Option) *ByCollection {
	return &ByCollection{
		stats: make(map[corpus.Collection]*Statistics),
		opts:  opts,
	}
}

// Statistics returns the cache for c, creating it on first use.
func (b *ByCollection) Statistics(c corpus.Collection) *Statistics {
	if !keyable(c) {
		b.warned.Do(func() {
			slog.Default().With("component", "statistics-cache").Warn("collection type is not comparable, statistics are not shared between calls",
				"collection_id", c.ID(), "type", reflect.TypeOf(c).String())
		})
		return New(c, b.opts...)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stats[c]
	if !ok {
		s = New(c, b.opts...)
		b.stats[c] = s
	}
	return s
}

// Peek returns the cache for c without creating one.
func (b *ByCollection) Peek(c corpus.Collection) (*Statistics, bool) {
	if !keyable(c) {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stats[c]
	return s, ok
}

// Discard drops the cache for c. The next Statistics call starts empty.
func (b *ByCollection) Discard(c corpus.Collection) {
	if !keyable(c) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.stats, c)
}

// Len returns the number of live caches.
func (b *ByCollection) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stats)
}

// keyable reports whether c can be hashed without panicking.
func keyable(c corpus.Collection) bool {
	return c != nil && reflect.ValueOf(c).Comparable()
}
