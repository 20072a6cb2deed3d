package catalog

import "github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"

func tfidfQuery(term string, doc corpus.Document, coll corpus.Collection) corpus.TermQuery {
	return corpus.TermQuery{Value: term, Language: "en", Document: doc, Collection: coll}
}
