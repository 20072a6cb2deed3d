// Package algorithm holds the named term-frequency and inverse-document-
// frequency weighting functions used by TF-IDF scoring.
//
// A process-wide Default registry carries the built-in functions. It is
// append-only: additional functions are registered once at startup, before
// steady-state scoring, and lookups are safe for concurrent use.
package algorithm

import (
	"fmt"
	"math"
	"sort"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
)

// Family names a group of weighting functions.
type Family string

const (
	FamilyTF  Family = "tf"
	FamilyIDF Family = "idf"
)

// TFFunc transforms a raw term frequency.
type TFFunc func(f float64) float64

// IDFFunc transforms a collection size n and a document frequency df.
type IDFFunc func(n, df float64) float64

// Registry maps names to weighting functions per family.
type Registry struct {
	mu  sync.RWMutex
	tf  map[string]TFFunc
	idf map[string]IDFFunc
}

// NewRegistry returns a registry preloaded with the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{
		tf:  make(map[string]TFFunc),
		idf: make(map[string]IDFFunc),
	}
	r.tf["natural"] = func(f float64) float64 { return f }
	r.tf["logarithm"] = func(f float64) float64 { return math.Log(1 + f) }
	r.tf["sqrt"] = math.Sqrt
	r.idf["logarithm"] = func(n, df float64) float64 { return math.Log(n / (1 + df)) }
	r.idf["none"] = func(n, df float64) float64 { return 1 }
	return r
}

// RegisterTF adds a TF function. Names are never overwritten.
func (r *Registry) RegisterTF(name string, fn TFFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("registering tf algorithm: name and function are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tf[name]; exists {
		return fmt.Errorf("tf algorithm %q already registered", name)
	}
	r.tf[name] = fn
	return nil
}

// RegisterIDF adds an IDF function. Names are never overwritten.
func (r *Registry) RegisterIDF(name string, fn IDFFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("registering idf algorithm: name and function are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.idf[name]; exists {
		return fmt.Errorf("idf algorithm %q already registered", name)
	}
	r.idf[name] = fn
	return nil
}

func (r *Registry) ResolveTF(name string) (TFFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tf[name]
	if !ok {
		return nil, apperrors.UnknownAlgorithmError(string(FamilyTF), name)
	}
	return fn, nil
}

func (r *Registry) ResolveIDF(name string) (IDFFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.idf[name]
	if !ok {
		return nil, apperrors.UnknownAlgorithmError(string(FamilyIDF), name)
	}
	return fn, nil
}

// Resolve looks name up in any family. The result is a TFFunc or an IDFFunc.
// Families other than tf and idf have no functions, so every lookup in them
// fails with a ConfigurationError.
func (r *Registry) Resolve(family Family, name string) (any, error) {
	switch family {
	case FamilyTF:
		return r.ResolveTF(name)
	case FamilyIDF:
		return r.ResolveIDF(name)
	default:
		return nil, apperrors.UnknownAlgorithmError(string(family), name)
	}
}

// Names returns the sorted names registered for family.
func (r *Registry) Names(family Family) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	switch family {
	case FamilyTF:
		for name := range r.tf {
			names = append(names, name)
		}
	case FamilyIDF:
		for name := range r.idf {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry.
var Default = NewRegistry()

func RegisterTF(name string, fn TFFunc) error   { return Default.RegisterTF(name, fn) }
func RegisterIDF(name string, fn IDFFunc) error { return Default.RegisterIDF(name, fn) }
