// Package validator checks ingestion requests before they are queued. It
// enforces identifier and text length limits and returns per-field error
// details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion"
)

const (
	maxIDLength       = 255
	maxLanguageLength = 32
	maxTextLength     = 1048576
	maxBatchSize      = 500
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks one document request.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)
	validateInto(errs, "", req)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateBatch checks every document of a batch. Field names are prefixed
// with the document's index.
func ValidateBatch(req *ingestion.BatchIngestRequest) error {
	errs := make(map[string]string)
	switch n := len(req.Documents); {
	case n == 0:
		errs["documents"] = "at least one document is required"
	case n > maxBatchSize:
		errs["documents"] = fmt.Sprintf("at most %d documents per batch", maxBatchSize)
	default:
		for i := range req.Documents {
			validateInto(errs, fmt.Sprintf("documents[%d].", i), &req.Documents[i])
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateInto(errs map[string]string, prefix string, req *ingestion.IngestRequest) {
	req.CollectionID = strings.TrimSpace(req.CollectionID)
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))

	checkID(errs, prefix+"collection_id", req.CollectionID)
	checkID(errs, prefix+"document_id", req.DocumentID)
	if len(req.Language) > maxLanguageLength {
		errs[prefix+"language"] = fmt.Sprintf("language must be at most %d characters", maxLanguageLength)
	}
	switch {
	case strings.TrimSpace(req.Text) == "":
		errs[prefix+"text"] = "text is required and must not be empty"
	case len(req.Text) > maxTextLength:
		errs[prefix+"text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	case !utf8.ValidString(req.Text):
		errs[prefix+"text"] = "text must be valid UTF-8"
	}
}

func checkID(errs map[string]string, field, value string) {
	switch {
	case value == "":
		errs[field] = "is required"
	case len(value) > maxIDLength:
		errs[field] = fmt.Sprintf("must be at most %d characters", maxIDLength)
	case strings.ContainsAny(value, "*?[]"):
		errs[field] = "must not contain glob characters"
	}
}
