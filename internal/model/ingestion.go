package model

import (
	"time"

	"github.com/google/uuid"
)

type LogAction string

const (
	ActionCreate          LogAction = "create"
	ActionError           LogAction = "error"
	ActionBatchCompletion LogAction = "batch-completion"
)

type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchError   BatchStatus = "error"
	BatchPartial BatchStatus = "partial"
)

// IngestionLogEntry is one append-only audit row.
type IngestionLogEntry struct {
	ID           uuid.UUID   `json:"id"`
	BatchID      string      `json:"batch_id"`
	ArticleSlug  string      `json:"article_slug,omitempty"`
	Action       LogAction   `json:"action"`
	Status       BatchStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Metadata     any         `json:"metadata,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewLogEntry stamps an entry with a fresh ID and the current time.
func NewLogEntry(batchID, slug string, action LogAction, status BatchStatus) IngestionLogEntry {
	return IngestionLogEntry{
		ID:          uuid.New(),
		BatchID:     batchID,
		ArticleSlug: slug,
		Action:      action,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

type BundleError struct {
	Slug  string `json:"slug"`
	Error string `json:"error"`
}

// BatchResults is the per-batch accounting returned to the caller.
type BatchResults struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Errors     []BundleError `json:"errors"`
}

func NewBatchResults(total int) BatchResults {
	return BatchResults{Total: total, Errors: []BundleError{}}
}

// Status is success with no failures, error with no successes, partial otherwise.
func (r BatchResults) Status() BatchStatus {
	switch {
	case r.Failed == 0:
		return BatchSuccess
	case r.Successful == 0:
		return BatchError
	default:
		return BatchPartial
	}
}
