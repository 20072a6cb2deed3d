// Package language supplies per-language common-word lists and answers
// membership questions against them. A language without a list is not an
// error; it simply has no common words.
package language

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Provider exposes an optional common-word list per language.
type Provider interface {
	CommonWords(language string) ([]string, bool)
}

// StaticProvider serves lists held in memory, keyed by lowercased language.
type StaticProvider struct {
	mu    sync.RWMutex
	lists map[string][]string
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{lists: make(map[string][]string)}
}

var english = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can", "there",
	"been", "would", "could", "should", "about",
	"into", "than", "then", "them", "these",
	"those", "some", "such", "only", "other",
}

// Builtin returns a provider carrying the English list under "en" and
// "english".
func Builtin() *StaticProvider {
	p := NewStaticProvider()
	p.Set("en", english)
	p.Set("english", english)
	return p
}

// Set replaces the list for language.
func (p *StaticProvider) Set(language string, words []string) {
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			normalized = append(normalized, w)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists[strings.ToLower(language)] = normalized
}

func (p *StaticProvider) CommonWords(language string) ([]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	words, ok := p.lists[strings.ToLower(language)]
	return words, ok
}

// Languages returns the number of languages with a list.
func (p *StaticProvider) Languages() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.lists)
}

// LoadFile merges a YAML document mapping language to word list, e.g.
//
//	fr: [le, la, les, de]
//	de: [der, die, das]
func (p *StaticProvider) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading language file %s: %w", path, err)
	}
	var lists map[string][]string
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return fmt.Errorf("parsing language file %s: %w", path, err)
	}
	for lang, words := range lists {
		p.Set(lang, words)
	}
	return nil
}

// Lexicon memoizes common-word sets per language. The set for a language is
// built on first use and reused verbatim afterwards.
type Lexicon struct {
	provider Provider
	mu       sync.RWMutex
	sets     map[string]map[string]struct{}
}

func NewLexicon(provider Provider) *Lexicon {
	return &Lexicon{
		provider: provider,
		sets:     make(map[string]map[string]struct{}),
	}
}

// IsCommon reports whether term is in language's common-word list. A
// language without a list has no common words.
func (l *Lexicon) IsCommon(language, term string) bool {
	set, ok := l.set(language)
	if !ok {
		return false
	}
	_, common := set[term]
	return common
}

func (l *Lexicon) set(language string) (map[string]struct{}, bool) {
	l.mu.RLock()
	set, ok := l.sets[language]
	l.mu.RUnlock()
	if ok {
		return set, set != nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if set, ok := l.sets[language]; ok {
		return set, set != nil
	}
	words, found := l.provider.CommonWords(language)
	if !found {
		// Remember the absence too.
		l.sets[language] = nil
		return nil, false
	}
	set = make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	l.sets[language] = set
	return set, true
}
