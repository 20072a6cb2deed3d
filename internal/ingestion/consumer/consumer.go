// Package consumer applies ingest events to the catalog, either from the
// Kafka document topic or directly from the publisher when Kafka is disabled.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/metrics"
)

// Ingestion outcomes recorded on DocumentsIngestedTotal.
const (
	statusStored   = "stored"
	statusReplaced = "replaced"
	statusRejected = "rejected"
	statusFailed   = "failed"
)

// Invalidator drops derived results for a collection whose documents changed.
type Invalidator interface {
	InvalidateCollection(ctx context.Context, collectionID string) error
}

// Applier stores ingest events in the catalog, persisting them first when a
// store is configured so the catalog never serves an unpersisted document.
type Applier struct {
	catalog     *catalog.Catalog
	store       catalog.Store
	invalidator Invalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Applier)

// WithStore persists every event before it is applied.
func WithStore(store catalog.Store) Option {
	return func(a *Applier) { a.store = store }
}

// WithInvalidator registers a hook run after a collection changes.
func WithInvalidator(inv Invalidator) Option {
	return func(a *Applier) { a.invalidator = inv }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Applier) { a.metrics = m }
}

func New(cat *catalog.Catalog, opts ...Option) *Applier {
	a := &Applier{
		catalog: cat,
		logger:  slog.Default().With("component", "ingest-applier"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply persists the event's document when a store is configured, then adds
// it to the catalog and invalidates cached scores. A persistence failure
// leaves the catalog untouched and is returned so the event can be
// redelivered; re-applying an event is idempotent.
func (a *Applier) Apply(ctx context.Context, event ingestion.IngestEvent) error {
	collectionID, doc, err := a.catalog.PrepareDocument(event.CollectionID, event.DocumentID, event.Language, event.Text)
	if err != nil {
		a.count(statusRejected)
		return fmt.Errorf("applying document %s/%s: %w", event.CollectionID, event.DocumentID, err)
	}
	if a.store != nil {
		err := a.store.Save(ctx, catalog.StoredDocument{
			CollectionID: collectionID,
			DocumentID:   doc.ID(),
			Language:     doc.Language(),
			Text:         event.Text,
			WordCount:    doc.WordCount(),
			IngestedAt:   event.IngestedAt,
		})
		if err != nil {
			a.count(statusFailed)
			return fmt.Errorf("persisting document %s/%s: %w", event.CollectionID, event.DocumentID, err)
		}
	}
	replaced := a.catalog.PutDocument(collectionID, doc)
	if a.invalidator != nil {
		if err := a.invalidator.InvalidateCollection(ctx, collectionID); err != nil {
			a.logger.Warn("failed to invalidate cached scores",
				"collection_id", collectionID,
				"error", err,
			)
		}
	}
	if replaced {
		a.count(statusReplaced)
	} else {
		a.count(statusStored)
	}
	a.logger.Info("document applied",
		"collection_id", event.CollectionID,
		"document_id", event.DocumentID,
		"word_count", doc.WordCount(),
		"replaced", replaced,
	)
	return nil
}

// HandleMessage returns a Kafka MessageHandler that applies each ingest
// event. Undecodable or invalid messages are logged and committed so they do
// not block the partition.
func (a *Applier) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			a.logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			a.count(statusRejected)
			return nil
		}
		if err := a.Apply(ctx, event); err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) {
				a.logger.Error("dropping invalid ingest event", "key", string(key), "error", err)
				return nil
			}
			return err
		}
		return nil
	}
}

func (a *Applier) count(status string) {
	if a.metrics != nil {
		a.metrics.DocumentsIngestedTotal.WithLabelValues(status).Inc()
	}
}
