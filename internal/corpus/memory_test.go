package corpus

import (
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus/tokenizer"
)

func TestNewDocumentRegistry(t *testing.T) {
	doc := NewDocument("d1", "en", "The cat saw the other cat", tokenizer.Options{})
	if doc.WordCount() != 6 {
		t.Errorf("WordCount = %d, want 6", doc.WordCount())
	}
	tests := map[string]int{"cat": 2, "the": 2, "saw": 1, "bird": 0}
	for term, want := range tests {
		if got := doc.TermCount(term); got != want {
			t.Errorf("TermCount(%q) = %d, want %d", term, got, want)
		}
	}
	if doc.Terms() != 4 {
		t.Errorf("Terms = %d, want 4", doc.Terms())
	}
}

func TestNewDocumentFromCountsNormalizesTerms(t *testing.T) {
	doc := NewDocumentFromCounts("d1", "en", map[string]int{"Cat": 2}, 3)
	if got := doc.TermCount("cat"); got != 2 {
		t.Errorf("TermCount(cat) = %d", got)
	}
	if doc.WordCount() != 3 {
		t.Errorf("WordCount = %d", doc.WordCount())
	}
}

func TestCollectionPutReplaces(t *testing.T) {
	c := NewCollection("c1",
		NewDocumentFromCounts("a", "en", map[string]int{"x": 1}, 1),
		NewDocumentFromCounts("b", "en", map[string]int{"y": 1}, 1),
	)
	if replaced := c.Put(NewDocumentFromCounts("a", "en", map[string]int{"z": 5}, 5)); !replaced {
		t.Error("expected Put to report replacement")
	}
	if c.DocumentCount() != 2 {
		t.Fatalf("DocumentCount = %d, want 2", c.DocumentCount())
	}
	doc, ok := c.Document("a")
	if !ok || doc.TermCount("z") != 5 {
		t.Errorf("document a not replaced: %v", doc)
	}

	var order []string
	if err := c.EachDocument(func(d Document) error {
		order = append(order, d.ID())
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("enumeration order = %v", order)
	}
}

func TestEachDocumentStopsOnError(t *testing.T) {
	c := NewCollection("c1",
		NewDocumentFromCounts("a", "en", nil, 0),
		NewDocumentFromCounts("b", "en", nil, 0),
	)
	stop := errors.New("stop")
	visited := 0
	err := c.EachDocument(func(Document) error {
		visited++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want stop", err)
	}
	if visited != 1 {
		t.Errorf("visited = %d, want 1", visited)
	}
}
