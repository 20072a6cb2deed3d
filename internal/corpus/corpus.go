// Package corpus defines the read-only view of documents and collections that
// term statistics are computed over, and in-memory implementations of it.
package corpus

// Document is a tokenised document with a stable identifier.
type Document interface {
	ID() string
	// WordCount is the total number of tokens in the document.
	WordCount() int
	// TermCount returns the number of occurrences of a normalised term, or
	// zero when the document's token registry has no entry for it.
	TermCount(term string) int
}

// Collection is an addressable set of documents.
type Collection interface {
	ID() string
	DocumentCount() int
	// EachDocument calls fn for every document. Enumeration stops at the first
	// non-nil error, which is returned.
	EachDocument(fn func(Document) error) error
}

// OptionNormalizeWordCount is the statistics option that divides a term's
// frequency by its document's word count.
const OptionNormalizeWordCount = "normalize_word_count"

// TermQuery identifies one occurrence of a term to be scored. Document and
// Collection may be nil; scoring rejects such queries.
type TermQuery struct {
	Value      string
	Language   string
	Document   Document
	Collection Collection
}
