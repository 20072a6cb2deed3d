package tfidf

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
)

// Method is the name the engine is registered under in the statistics
// category.
const Method = "tf_idf"

// Worker exposes an Engine through the loosely-typed statistics entry point
// shared by every statistics implementation.
type Worker struct {
	Engine   *Engine
	Defaults Options
}

func NewWorker(engine *Engine, defaults Options) *Worker {
	return &Worker{Engine: engine, Defaults: defaults}
}

// Statistics merges opts over the worker's defaults and scores q. Common
// words and short terms score 0 before any other option is checked, so a
// malformed option only fails queries that reach the computation.
func (w *Worker) Statistics(ctx context.Context, q corpus.TermQuery, opts map[string]any) (float64, error) {
	merged, err := MergeOptions(w.Defaults, opts)
	if err != nil {
		removeCommon := w.Defaults.RemoveCommonWords
		if v, ok := opts[KeyRemoveCommonWords]; ok {
			if b, bErr := asBool(KeyRemoveCommonWords, v); bErr == nil {
				removeCommon = b
			}
		}
		if _, outcome := w.Engine.filter(q, removeCommon); outcome != "" {
			w.Engine.observe(outcome, time.Now())
			return 0, nil
		}
		return 0, err
	}
	return w.Engine.Score(ctx, q, merged)
}
