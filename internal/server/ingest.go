package server

import (
	"errors"
	"net/http"

	"kinderwise/internal/ingest"
	"kinderwise/internal/validate"

	"go.uber.org/zap"
)

const invalidRequest = "Invalid request: batch_id and articles array required"

type ingestResponse struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Results   any    `json:"results"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Auth.Authorized(r.Header.Get("Authorization")) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	req, err := ingest.DecodeRequest(r.Body, s.deps.MaxBatchSize)
	if err != nil {
		if errors.Is(err, ingest.ErrBatchTooLarge) {
			s.logger.Warn("Batch rejected", zap.Error(err))
		}
		writeError(w, http.StatusBadRequest, invalidRequest)
		return
	}

	out := s.deps.Processor.Process(r.Context(), req.BatchID, req.Articles)
	writeJSON(w, http.StatusOK, ingestResponse{
		Status:    string(out.Status),
		BatchID:   out.BatchID,
		Results:   out.Results,
		Timestamp: out.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleIngestDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoint": "/api/ingest",
		"method":   "POST",
		"auth":     "Bearer token required in Authorization header",
		"body": map[string]any{
			"batch_id": "string (unique identifier for this batch)",
			"articles": "array of content bundles",
		},
		"max_batch_size":  s.deps.MaxBatchSize,
		"required_fields": validate.RequiredFields,
		"validation": map[string]string{
			"slug":          "lowercase letters, digits and hyphens",
			"one_liner":     "50-200 characters",
			"key_facts":     "3-8 items",
			"last_reviewed": "YYYY-MM-DD",
		},
	})
}
