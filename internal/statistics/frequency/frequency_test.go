package frequency

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
)

func TestWorkerStatistics(t *testing.T) {
	doc := corpus.NewDocumentFromCounts("doc1", "en", map[string]int{"cat": 2, "dog": 1}, 4)
	coll := corpus.NewCollection("c1", doc)
	w := NewWorker(cache.NewByCollection())
	ctx := context.Background()
	q := corpus.TermQuery{Value: "Cat", Language: "en", Document: doc, Collection: coll}

	tests := []struct {
		opts map[string]any
		want float64
	}{
		{nil, 2},
		{map[string]any{"normalize_word_count": true}, 0.5},
		{map[string]any{"normalize_word_count": "false"}, 2},
	}
	for _, tt := range tests {
		got, err := w.Statistics(ctx, q, tt.opts)
		if err != nil {
			t.Fatalf("Statistics(%v): %v", tt.opts, err)
		}
		if got != tt.want {
			t.Errorf("Statistics(%v) = %v, want %v", tt.opts, got, tt.want)
		}
	}

	if _, err := w.Statistics(ctx, corpus.TermQuery{Value: "cat"}, nil); !errors.Is(err, apperrors.ErrMissingParent) {
		t.Errorf("err = %v, want ErrMissingParent", err)
	}
	if _, err := w.Statistics(ctx, q, map[string]any{"normalize_word_count": 1}); !errors.Is(err, apperrors.ErrInvalidOption) {
		t.Errorf("err = %v, want ErrInvalidOption", err)
	}
}
