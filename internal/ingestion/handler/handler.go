package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/logger"
)

// maxBodyBytes bounds a request body; a batch may carry several documents.
const maxBodyBytes = 8 << 20

// Ingester queues or applies validated documents.
type Ingester interface {
	Ingest(ctx context.Context, reqs []ingestion.IngestRequest) ([]ingestion.IngestResponse, error)
}

type Handler struct {
	ingester Ingester
	logger   *slog.Logger
}

func New(ingester Ingester) *Handler {
	return &Handler{
		ingester: ingester,
		logger:   slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest accepts a single document.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	resps, ok := h.ingest(w, r, []ingestion.IngestRequest{req})
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusAccepted, resps[0])
}

// IngestBatch accepts up to several hundred documents in one body.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req ingestion.BatchIngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateBatch(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	resps, ok := h.ingest(w, r, req.Documents)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{"documents": resps})
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, reqs []ingestion.IngestRequest) ([]ingestion.IngestResponse, bool) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	resps, err := h.ingester.Ingest(ctx, reqs)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"documents", len(reqs),
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return nil, false
	}
	log.Info("documents accepted", "documents", len(resps))
	return resps, true
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
