package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
)

func TestAddDocumentAndLookup(t *testing.T) {
	c := New(WithDefaultLanguage("en"))
	_, replaced, err := c.AddDocument("news", "d1", "", "Cats chase mice")
	if err != nil || replaced {
		t.Fatalf("AddDocument = %v, %v", replaced, err)
	}
	coll, doc, err := c.Document("news", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if coll.ID() != "news" || doc.WordCount() != 3 || doc.TermCount("cats") != 1 {
		t.Errorf("coll=%s wc=%d cats=%d", coll.ID(), doc.WordCount(), doc.TermCount("cats"))
	}

	if _, _, err := c.Document("missing", "d1"); !errors.Is(err, apperrors.ErrCollectionNotFound) {
		t.Errorf("err = %v, want ErrCollectionNotFound", err)
	}
	if _, _, err := c.Document("news", "d9"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
	if _, err := c.Collection("missing"); !errors.Is(err, apperrors.ErrCollectionNotFound) {
		t.Errorf("err = %v, want ErrCollectionNotFound", err)
	}
	if _, _, err := c.AddDocument(" ", "d1", "", "x"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAddDocumentReplacesAndDiscardsCache(t *testing.T) {
	c := New()
	ctx := context.Background()
	c.AddDocument("news", "d1", "en", "cat cat dog")
	c.AddDocument("news", "d2", "en", "dog bird")
	coll, _ := c.Collection("news")

	df, err := c.Statistics(coll).DocumentFrequency(ctx, "cat")
	if err != nil || df != 1 {
		t.Fatalf("df(cat) = %d, %v", df, err)
	}

	doc, replaced, err := c.AddDocument("news", "d2", "en", "cat bird")
	if err != nil || !replaced {
		t.Fatalf("AddDocument = %v, %v; want replaced", replaced, err)
	}
	df, err = c.Statistics(coll).DocumentFrequency(ctx, "cat")
	if err != nil || df != 2 {
		t.Errorf("df(cat) after replace = %d, %v; want 2", df, err)
	}
	if coll.DocumentCount() != 2 || doc.WordCount() != 2 {
		t.Errorf("DocumentCount = %d, wc = %d", coll.DocumentCount(), doc.WordCount())
	}
}

func TestCatalogServesEngineScores(t *testing.T) {
	c := New()
	c.AddDocument("c1", "doc1", "en", "cat cat dog")
	c.AddDocument("c1", "doc2", "en", "dog bird")
	c.AddDocument("c1", "doc3", "en", "fish fish fish")
	e := tfidf.New(tfidf.WithCacheSource(c))

	coll, doc, err := c.Document("c1", "doc1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Score(context.Background(), tfidfQuery("cat", doc, coll), tfidf.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.8109 {
		t.Errorf("score = %v, want 0.8109", got)
	}
}

func TestCollectionsAndCacheStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithMetrics(metrics.NewWithRegistry(reg)))
	c.AddDocument("b", "d1", "en", "alpha beta")
	c.AddDocument("a", "d1", "en", "alpha")
	c.AddDocument("a", "d2", "en", "gamma")

	coll, _ := c.Collection("a")
	c.Statistics(coll).DocumentFrequency(context.Background(), "alpha")
	c.Statistics(coll).DocumentFrequency(context.Background(), "alpha")

	got := c.Collections()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("Collections = %+v", got)
	}
	if got[0].Documents != 2 || got[0].CachedDF != 1 {
		t.Errorf("summary a = %+v", got[0])
	}
	stats := c.CacheStats()
	if stats["df"].Hits != 1 || stats["df"].Misses != 1 {
		t.Errorf("df stats = %+v", stats["df"])
	}

	n, err := c.DiscardStatistics("")
	if err != nil || n != 2 {
		t.Errorf("DiscardStatistics = %d, %v", n, err)
	}
	if _, err := c.DiscardStatistics("zzz"); !errors.Is(err, apperrors.ErrCollectionNotFound) {
		t.Errorf("err = %v, want ErrCollectionNotFound", err)
	}
	if c.Collections()[0].CachedDF != 0 {
		t.Error("cache survived discard")
	}
}

func TestConcurrentIngestAndScore(t *testing.T) {
	c := New()
	c.AddDocument("c", "seed", "en", "cat")
	e := tfidf.New(tfidf.WithCacheSource(c))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.AddDocument("c", string(rune('a'+i)), "en", "cat dog")
		}(i)
		go func() {
			defer wg.Done()
			coll, doc, err := c.Document("c", "seed")
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := e.Score(ctx, tfidfQuery("cat", doc, coll), tfidf.DefaultOptions()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	coll, _ := c.Collection("c")
	if coll.DocumentCount() != 9 {
		t.Errorf("DocumentCount = %d, want 9", coll.DocumentCount())
	}
}

type memoryStore struct {
	docs     []StoredDocument
	failures int
	loads    int
}

func (s *memoryStore) Save(_ context.Context, doc StoredDocument) error {
	s.docs = append(s.docs, doc)
	return nil
}

func (s *memoryStore) Load(_ context.Context, fn func(StoredDocument) error) error {
	s.loads++
	for i, doc := range s.docs {
		if s.failures > 0 && i == 1 {
			s.failures--
			return errors.New("connection reset")
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func TestRestoreRetriesPartialLoads(t *testing.T) {
	store := &memoryStore{failures: 1}
	now := time.Now()
	store.Save(context.Background(), StoredDocument{CollectionID: "c", DocumentID: "d1", Language: "en", Text: "cat dog", IngestedAt: now})
	store.Save(context.Background(), StoredDocument{CollectionID: "c", DocumentID: "d2", Language: "en", Text: "dog", IngestedAt: now})
	store.Save(context.Background(), StoredDocument{CollectionID: "", DocumentID: "bad", Text: "x", IngestedAt: now})

	c := New()
	n, err := Restore(context.Background(), c, store, resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 2 || store.loads != 2 {
		t.Errorf("restored = %d after %d loads, want 2 after 2", n, store.loads)
	}
	coll, _ := c.Collection("c")
	if coll.DocumentCount() != 2 {
		t.Errorf("DocumentCount = %d, want 2", coll.DocumentCount())
	}
}

func TestRestoreGivesUp(t *testing.T) {
	store := &memoryStore{failures: 5}
	store.docs = []StoredDocument{{CollectionID: "c", DocumentID: "d1"}, {CollectionID: "c", DocumentID: "d2"}}
	_, err := Restore(context.Background(), New(), store, resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})
	if err == nil {
		t.Fatal("expected error")
	}
}
