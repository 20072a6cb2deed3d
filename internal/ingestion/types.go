// Package ingestion defines the request/response types and Kafka event schema
// of the document ingestion pipeline that feeds the scorer's collections.
package ingestion

import "time"

// Document statuses reported to callers.
const (
	StatusQueued  = "queued"
	StatusApplied = "applied"
)

// IngestRequest is the JSON body accepted by the document ingestion endpoint.
type IngestRequest struct {
	CollectionID string `json:"collection_id"`
	DocumentID   string `json:"document_id"`
	Language     string `json:"language,omitempty"`
	Text         string `json:"text"`
}

// BatchIngestRequest submits several documents in one call.
type BatchIngestRequest struct {
	Documents []IngestRequest `json:"documents"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	CollectionID string `json:"collection_id"`
	DocumentID   string `json:"document_id"`
	Status       string `json:"status"`
}

// IngestEvent is the Kafka message payload for one document. Events are keyed
// by collection id so documents of one collection apply in order.
type IngestEvent struct {
	CollectionID string    `json:"collection_id"`
	DocumentID   string    `json:"document_id"`
	Language     string    `json:"language,omitempty"`
	Text         string    `json:"text"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Event converts the request into the event applied to the catalog.
func (r IngestRequest) Event(now time.Time) IngestEvent {
	return IngestEvent{
		CollectionID: r.CollectionID,
		DocumentID:   r.DocumentID,
		Language:     r.Language,
		Text:         r.Text,
		IngestedAt:   now.UTC(),
	}
}
