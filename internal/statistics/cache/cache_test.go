package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
)

// countingDoc records how often its token registry is consulted.
type countingDoc struct {
	id     string
	wc     int
	counts map[string]int
	calls  atomic.Int64
	wcHits atomic.Int64
}

func (d *countingDoc) ID() string { return d.id }
func (d *countingDoc) WordCount() int {
	d.wcHits.Add(1)
	return d.wc
}
func (d *countingDoc) TermCount(term string) int {
	d.calls.Add(1)
	return d.counts[term]
}

// countingCollection records enumerations and can block inside them.
type countingCollection struct {
	id          string
	docs        []*countingDoc
	enumerated  atomic.Int64
	countCalls  atomic.Int64
	beforeVisit func()
}

func (c *countingCollection) ID() string { return c.id }
func (c *countingCollection) DocumentCount() int {
	c.countCalls.Add(1)
	return len(c.docs)
}
func (c *countingCollection) EachDocument(fn func(corpus.Document) error) error {
	c.enumerated.Add(1)
	for _, d := range c.docs {
		if c.beforeVisit != nil {
			c.beforeVisit()
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func scenarioCollection() *countingCollection {
	return &countingCollection{
		id: "c1",
		docs: []*countingDoc{
			{id: "doc1", wc: 3, counts: map[string]int{"cat": 2, "dog": 1}},
			{id: "doc2", wc: 2, counts: map[string]int{"dog": 1, "bird": 1}},
			{id: "doc3", wc: 3, counts: map[string]int{"fish": 3}},
		},
	}
}

func TestDocumentFrequency(t *testing.T) {
	coll := scenarioCollection()
	s := New(coll)
	ctx := context.Background()

	tests := map[string]int{"cat": 1, "dog": 2, "fish": 1, "zebra": 0}
	for term, want := range tests {
		got, err := s.DocumentFrequency(ctx, term)
		if err != nil {
			t.Fatalf("DocumentFrequency(%q): %v", term, err)
		}
		if got != want {
			t.Errorf("DocumentFrequency(%q) = %d, want %d", term, got, want)
		}
	}
	if n := coll.enumerated.Load(); n != 4 {
		t.Errorf("enumerations = %d, want 4 (one per distinct term)", n)
	}
}

func TestDocumentFrequencyPopulatesTermFrequencies(t *testing.T) {
	coll := scenarioCollection()
	s := New(coll)
	if _, err := s.DocumentFrequency(context.Background(), "dog"); err != nil {
		t.Fatal(err)
	}
	_, fEntries := s.Entries()
	if fEntries != 3 {
		t.Fatalf("term frequency entries = %d, want 3", fEntries)
	}
	for _, d := range coll.docs {
		before := d.calls.Load()
		s.TermFrequency(d, "dog")
		if d.calls.Load() != before {
			t.Errorf("doc %s recomputed a term frequency populated by df", d.id)
		}
	}
	if got := s.TermFrequency(coll.docs[0], "dog"); got != 1 {
		t.Errorf("TermFrequency(doc1, dog) = %d", got)
	}
}

func TestPopulatedEntriesAreNeverRecomputed(t *testing.T) {
	coll := scenarioCollection()
	s := New(coll)
	ctx := context.Background()

	if s.DocumentCount() != 3 {
		t.Fatal("unexpected document count")
	}
	if df, _ := s.DocumentFrequency(ctx, "cat"); df != 1 {
		t.Fatalf("df(cat) = %d", df)
	}
	if wc := s.WordCount(coll.docs[0]); wc != 3 {
		t.Fatalf("wc = %d", wc)
	}

	// Mutate the underlying content. The cache is stale-tolerant: it keeps
	// serving what it first observed.
	coll.docs[1].counts["cat"] = 4
	coll.docs[0].wc = 100
	coll.docs = append(coll.docs, &countingDoc{id: "doc4", counts: map[string]int{"cat": 1}})

	if s.DocumentCount() != 3 {
		t.Errorf("document count changed to %d", s.DocumentCount())
	}
	if df, _ := s.DocumentFrequency(ctx, "cat"); df != 1 {
		t.Errorf("df(cat) changed to %d", df)
	}
	if wc := s.WordCount(coll.docs[0]); wc != 3 {
		t.Errorf("wc changed to %d", wc)
	}
	if got := s.TermFrequency(coll.docs[1], "cat"); got != 0 {
		t.Errorf("f(doc2, cat) changed to %d", got)
	}
	if coll.countCalls.Load() != 1 {
		t.Errorf("DocumentCount consulted %d times", coll.countCalls.Load())
	}
	if coll.docs[0].wcHits.Load() != 1 {
		t.Errorf("WordCount consulted %d times", coll.docs[0].wcHits.Load())
	}

	// A fresh cache sees the new content.
	fresh := New(coll)
	if df, _ := fresh.DocumentFrequency(ctx, "cat"); df != 3 {
		t.Errorf("fresh df(cat) = %d, want 3", df)
	}
}

func TestConcurrentMissesShareOneEnumeration(t *testing.T) {
	coll := scenarioCollection()
	release := make(chan struct{})
	var once sync.Once
	entered := make(chan struct{})
	coll.beforeVisit = func() {
		once.Do(func() { close(entered) })
		<-release
	}
	s := New(coll)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = s.DocumentFrequency(context.Background(), "dog")
	}()
	<-entered
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.DocumentFrequency(context.Background(), "dog")
		}(i)
	}
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != 2 {
			t.Errorf("caller %d got df=%d, want 2", i, results[i])
		}
	}
	// Late callers either joined the in-flight enumeration or hit the stored
	// value; neither starts a second enumeration.
	if n := coll.enumerated.Load(); n != 1 {
		t.Errorf("enumerations = %d, want 1", n)
	}
	for _, d := range coll.docs {
		if c := d.calls.Load(); c != 1 {
			t.Errorf("doc %s term lookups = %d, want 1", d.id, c)
		}
	}
}

func TestCancelledEnumerationStoresNothing(t *testing.T) {
	coll := scenarioCollection()
	s := New(coll)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.DocumentFrequency(ctx, "dog"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if dfEntries, _ := s.Entries(); dfEntries != 0 {
		t.Fatalf("df entries = %d after cancellation", dfEntries)
	}
	df, err := s.DocumentFrequency(context.Background(), "dog")
	if err != nil || df != 2 {
		t.Errorf("retry got df=%d err=%v", df, err)
	}
}

func TestFollowerSurvivesCancelledLeader(t *testing.T) {
	coll := scenarioCollection()
	release := make(chan struct{})
	var once sync.Once
	entered := make(chan struct{})
	coll.beforeVisit = func() {
		once.Do(func() { close(entered) })
		<-release
	}
	s := New(coll)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := s.DocumentFrequency(leaderCtx, "dog")
		leaderErr <- err
	}()
	<-entered

	type result struct {
		df  int
		err error
	}
	follower := make(chan result, 1)
	go func() {
		df, err := s.DocumentFrequency(context.Background(), "dog")
		follower <- result{df, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	close(release)

	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader err = %v, want context.Canceled", err)
	}
	got := <-follower
	if got.err != nil || got.df != 2 {
		t.Errorf("follower got df=%d err=%v, want 2", got.df, got.err)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	coll := scenarioCollection()
	s := New(coll, WithMetrics(m))
	ctx := context.Background()

	s.DocumentCount()
	s.DocumentCount()
	s.DocumentFrequency(ctx, "cat")
	s.DocumentFrequency(ctx, "cat")
	s.TermFrequency(coll.docs[0], "cat")

	stats := s.Stats()
	if got := stats[FamilyDocumentCount]; got.Hits != 1 || got.Misses != 1 {
		t.Errorf("n stats = %+v", got)
	}
	if got := stats[FamilyDocumentFrequency]; got.Hits != 1 || got.Misses != 1 {
		t.Errorf("df stats = %+v", got)
	}
	if got := stats[FamilyTermFrequency]; got.Hits != 1 || got.Misses != 3 {
		t.Errorf("f stats = %+v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var misses float64
	for _, mf := range families {
		if mf.GetName() == "statistics_cache_misses_total" {
			for _, metric := range mf.GetMetric() {
				misses += metric.GetCounter().GetValue()
			}
		}
	}
	if misses != 5 {
		t.Errorf("statistics_cache_misses_total = %v, want 5", misses)
	}
}

func BenchmarkDocumentFrequencyHit(b *testing.B) {
	s := New(scenarioCollection())
	ctx := context.Background()
	s.DocumentFrequency(ctx, "dog")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.DocumentFrequency(ctx, "dog")
	}
}
