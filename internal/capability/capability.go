// Package capability maps symbolic operation names to the components that
// implement them. Each category has its own worker interface; a method name
// belongs to exactly one category and resolves to one worker.
package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
)

// Category groups interchangeable workers.
type Category string

const CategoryStatistics Category = "statistics"

// StatisticsWorker computes a numeric statistic for a term occurrence.
// Options are loosely typed so any implementation can be swapped in for
// another under the same category.
type StatisticsWorker interface {
	Statistics(ctx context.Context, q corpus.TermQuery, opts map[string]any) (float64, error)
}

// Registry resolves method names to workers.
type Registry struct {
	mu         sync.RWMutex
	categories map[string]Category
	statistics map[string]StatisticsWorker
}

func NewRegistry() *Registry {
	return &Registry{
		categories: make(map[string]Category),
		statistics: make(map[string]StatisticsWorker),
	}
}

// RegisterStatistics registers w under method in the statistics category.
func (r *Registry) RegisterStatistics(method string, w StatisticsWorker) error {
	if method == "" || w == nil {
		return fmt.Errorf("registering statistics worker: method and worker are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if category, exists := r.categories[method]; exists {
		return fmt.Errorf("method %q already registered in category %s", method, category)
	}
	r.categories[method] = CategoryStatistics
	r.statistics[method] = w
	return nil
}

// Statistics returns the statistics worker registered under method.
func (r *Registry) Statistics(method string) (StatisticsWorker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.statistics[method]
	if !ok {
		return nil, apperrors.UnknownMethodError(string(CategoryStatistics), method)
	}
	return w, nil
}

// Lookup returns the category a method belongs to.
func (r *Registry) Lookup(method string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	category, ok := r.categories[method]
	return category, ok
}

// Methods returns the sorted method names registered in category.
func (r *Registry) Methods(category Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]string, 0)
	for method, c := range r.categories {
		if c == category {
			methods = append(methods, method)
		}
	}
	sort.Strings(methods)
	return methods
}
