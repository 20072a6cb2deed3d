package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/resilience"
)

// StoredDocument is the persisted form of an ingested document.
type StoredDocument struct {
	CollectionID string
	DocumentID   string
	Language     string
	Text         string
	WordCount    int
	IngestedAt   time.Time
}

// Store persists ingested documents so the catalog survives restarts.
type Store interface {
	Save(ctx context.Context, doc StoredDocument) error
	Load(ctx context.Context, fn func(StoredDocument) error) error
}

// PostgresStore keeps documents in the documents table.
type PostgresStore struct {
	client *postgres.Client
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

// Save upserts doc keyed by (collection_id, document_id).
func (s *PostgresStore) Save(ctx context.Context, doc StoredDocument) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection_id, document_id, language, body, word_count, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (collection_id, document_id) DO UPDATE
		SET language = EXCLUDED.language, body = EXCLUDED.body,
			word_count = EXCLUDED.word_count, ingested_at = EXCLUDED.ingested_at`,
			doc.CollectionID, doc.DocumentID, doc.Language, doc.Text, doc.WordCount, doc.IngestedAt)
		if err != nil {
			return fmt.Errorf("upserting document %s/%s: %w", doc.CollectionID, doc.DocumentID, err)
		}
		return nil
	})
}

// Load streams every stored document in ingestion order.
func (s *PostgresStore) Load(ctx context.Context, fn func(StoredDocument) error) error {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT collection_id, document_id, language, body, word_count, ingested_at
		FROM documents ORDER BY ingested_at, collection_id, document_id`)
	if err != nil {
		return fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var doc StoredDocument
		if err := rows.Scan(&doc.CollectionID, &doc.DocumentID, &doc.Language, &doc.Text, &doc.WordCount, &doc.IngestedAt); err != nil {
			return fmt.Errorf("scanning document row: %w", err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Restore reloads every stored document into the catalog, retrying the load
// with backoff while the database is unavailable. Documents are applied
// idempotently, so a retry after a partial load is safe.
func Restore(ctx context.Context, c *Catalog, store Store, cfg resilience.RetryConfig) (int, error) {
	logger := slog.Default().With("component", "catalog-restore")
	var restored int
	err := resilience.Retry(ctx, "catalog-restore", cfg, func() error {
		restored = 0
		return store.Load(ctx, func(doc StoredDocument) error {
			if _, _, err := c.AddDocument(doc.CollectionID, doc.DocumentID, doc.Language, doc.Text); err != nil {
				logger.Warn("skipping stored document",
					"collection_id", doc.CollectionID,
					"document_id", doc.DocumentID,
					"error", err,
				)
				return nil
			}
			restored++
			return nil
		})
	})
	if err != nil {
		return restored, fmt.Errorf("restoring catalog: %w", err)
	}
	logger.Info("catalog restored", "documents", restored, "collections", len(c.Collections()))
	return restored, nil
}
