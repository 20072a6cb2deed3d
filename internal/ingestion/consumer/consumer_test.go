package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeStore struct {
	saved []catalog.StoredDocument
	err   error
}

func (s *fakeStore) Save(_ context.Context, doc catalog.StoredDocument) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, doc)
	return nil
}

func (s *fakeStore) Load(context.Context, func(catalog.StoredDocument) error) error { return nil }

type fakeInvalidator struct {
	collections []string
}

func (f *fakeInvalidator) InvalidateCollection(_ context.Context, id string) error {
	f.collections = append(f.collections, id)
	return errors.New("redis unavailable")
}

func TestApplyStoresPersistsAndInvalidates(t *testing.T) {
	cat := catalog.New(catalog.WithDefaultLanguage("en"))
	store := &fakeStore{}
	inv := &fakeInvalidator{}
	a := New(cat, WithStore(store), WithInvalidator(inv), WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())))

	ev := ingestion.IngestEvent{CollectionID: "news", DocumentID: "d1", Text: "the cat sat", IngestedAt: time.Now()}
	if err := a.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, err := cat.Document("news", "d1"); err != nil {
		t.Errorf("document not in catalog: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].WordCount != 3 || store.saved[0].Language != "en" {
		t.Errorf("saved = %+v", store.saved)
	}
	if len(inv.collections) != 1 || inv.collections[0] != "news" {
		t.Errorf("invalidated = %v", inv.collections)
	}
}

func TestApplyReturnsPersistenceErrors(t *testing.T) {
	cat := catalog.New()
	inv := &fakeInvalidator{}
	a := New(cat, WithStore(&fakeStore{err: errors.New("db down")}), WithInvalidator(inv))
	err := a.Apply(context.Background(), ingestion.IngestEvent{CollectionID: "c", DocumentID: "d", Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, _, err := cat.Document("c", "d"); err == nil {
		t.Error("unpersisted document is served by the catalog")
	}
	if len(inv.collections) != 0 {
		t.Errorf("invalidated = %v for an unchanged catalog", inv.collections)
	}

	// Redelivery after the store recovers applies the document.
	a.store = &fakeStore{}
	if err := a.Apply(context.Background(), ingestion.IngestEvent{CollectionID: "c", DocumentID: "d", Text: "x"}); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if _, _, err := cat.Document("c", "d"); err != nil {
		t.Errorf("document missing after redelivery: %v", err)
	}
	if len(inv.collections) != 1 {
		t.Errorf("invalidated = %v, want one invalidation", inv.collections)
	}
}

func TestHandleMessage(t *testing.T) {
	cat := catalog.New()
	handle := New(cat).HandleMessage()
	ctx := context.Background()

	if err := handle(ctx, []byte("c"), []byte(`{"collection_id":"c","document_id":"d1","text":"cat dog"}`)); err != nil {
		t.Fatalf("valid message: %v", err)
	}
	if _, _, err := cat.Document("c", "d1"); err != nil {
		t.Error(err)
	}
	if err := handle(ctx, nil, []byte(`{broken`)); err != nil {
		t.Errorf("undecodable message should be committed, got %v", err)
	}
	if err := handle(ctx, nil, []byte(`{"collection_id":"","document_id":"d1","text":"x"}`)); err != nil {
		t.Errorf("invalid message should be committed, got %v", err)
	}
}
