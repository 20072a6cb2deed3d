package corpus

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus/tokenizer"
)

// Occurrence records where a term appears inside a document.
type Occurrence struct {
	Positions []int
}

// MemoryDocument is an immutable Document built from text.
type MemoryDocument struct {
	id        string
	language  string
	wordCount int
	registry  map[string]*Occurrence
}

// NewDocument tokenises text and builds the document's token registry.
func NewDocument(id, language, text string, opts tokenizer.Options) *MemoryDocument {
	tokens := tokenizer.Tokenize(text, opts)
	registry := make(map[string]*Occurrence)
	for _, token := range tokens {
		occ, exists := registry[token.Term]
		if !exists {
			occ = &Occurrence{Positions: make([]int, 0, 4)}
			registry[token.Term] = occ
		}
		occ.Positions = append(occ.Positions, token.Position)
	}
	return &MemoryDocument{
		id:        id,
		language:  language,
		wordCount: len(tokens),
		registry:  registry,
	}
}

// NewDocumentFromCounts builds a document directly from term counts. The
// word count is given separately since it need not equal the sum of counts.
func NewDocumentFromCounts(id, language string, counts map[string]int, wordCount int) *MemoryDocument {
	registry := make(map[string]*Occurrence, len(counts))
	pos := 0
	for term, n := range counts {
		occ := &Occurrence{Positions: make([]int, 0, n)}
		for i := 0; i < n; i++ {
			occ.Positions = append(occ.Positions, pos)
			pos++
		}
		registry[tokenizer.Normalize(term)] = occ
	}
	return &MemoryDocument{
		id:        id,
		language:  language,
		wordCount: wordCount,
		registry:  registry,
	}
}

func (d *MemoryDocument) ID() string       { return d.id }
func (d *MemoryDocument) Language() string { return d.language }
func (d *MemoryDocument) WordCount() int   { return d.wordCount }

func (d *MemoryDocument) TermCount(term string) int {
	occ, ok := d.registry[term]
	if !ok {
		return 0
	}
	return len(occ.Positions)
}

// Terms returns the number of distinct terms in the token registry.
func (d *MemoryDocument) Terms() int {
	return len(d.registry)
}

// MemoryCollection is a Collection holding documents in insertion order.
type MemoryCollection struct {
	id    string
	mu    sync.RWMutex
	docs  []Document
	index map[string]int
}

func NewCollection(id string, docs ...Document) *MemoryCollection {
	c := &MemoryCollection{
		id:    id,
		index: make(map[string]int),
	}
	for _, doc := range docs {
		c.Put(doc)
	}
	return c
}

func (c *MemoryCollection) ID() string { return c.id }

// Put adds doc, replacing any document with the same ID in place. It reports
// whether a document was replaced.
func (c *MemoryCollection) Put(doc Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, exists := c.index[doc.ID()]; exists {
		c.docs[idx] = doc
		return true
	}
	c.index[doc.ID()] = len(c.docs)
	c.docs = append(c.docs, doc)
	return false
}

// Document returns the document with the given ID.
func (c *MemoryCollection) Document(id string) (Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.docs[idx], true
}

func (c *MemoryCollection) DocumentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// EachDocument iterates over a snapshot of the documents so fn may call back
// into the collection.
func (c *MemoryCollection) EachDocument(fn func(Document) error) error {
	c.mu.RLock()
	docs := make([]Document, len(c.docs))
	copy(docs, c.docs)
	c.mu.RUnlock()
	for _, doc := range docs {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}
