// Package audit records ingestion attempts as append-only log rows.
//
// Auditing is a best-effort side channel: Record never returns an error and
// failures are only reported to the operator log. Entries are usually pushed
// onto a Queue and written to a Sink by a Drainer running in the background.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kinderwise/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("audit queue is full")

// Auditor accepts log entries without blocking the caller on their outcome.
type Auditor interface {
	Record(ctx context.Context, entry model.IngestionLogEntry)
}

// Sink is the durable destination of audit rows.
type Sink interface {
	AppendLog(ctx context.Context, entry model.IngestionLogEntry) error
}

// Queue buffers entries between the request path and the Drainer.
type Queue interface {
	Push(ctx context.Context, entry model.IngestionLogEntry) error
	Pop(ctx context.Context) (model.IngestionLogEntry, error)
}

// QueueAuditor hands entries to a Queue and returns immediately.
type QueueAuditor struct {
	queue  Queue
	logger *zap.Logger
}

func NewQueueAuditor(q Queue, logger *zap.Logger) *QueueAuditor {
	return &QueueAuditor{queue: q, logger: logger}
}

func (a *QueueAuditor) Record(ctx context.Context, entry model.IngestionLogEntry) {
	entry = stamp(entry)
	guard(a.logger, entry, func() error {
		// the entry must outlive a cancelled request
		return a.queue.Push(context.WithoutCancel(ctx), entry)
	})
}

// DirectAuditor writes to the Sink synchronously, for processes with no Drainer.
type DirectAuditor struct {
	sink   Sink
	logger *zap.Logger
}

func NewDirectAuditor(sink Sink, logger *zap.Logger) *DirectAuditor {
	return &DirectAuditor{sink: sink, logger: logger}
}

func (a *DirectAuditor) Record(ctx context.Context, entry model.IngestionLogEntry) {
	entry = stamp(entry)
	guard(a.logger, entry, func() error {
		return a.sink.AppendLog(context.WithoutCancel(ctx), entry)
	})
}

func stamp(entry model.IngestionLogEntry) model.IngestionLogEntry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return entry
}

// guard runs fn and swallows both errors and panics.
func guard(logger *zap.Logger, entry model.IngestionLogEntry, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logEntryFailure(logger, entry, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		logEntryFailure(logger, entry, err)
	}
}

func logEntryFailure(logger *zap.Logger, entry model.IngestionLogEntry, err error) {
	if logger == nil {
		return
	}
	logger.Error("Audit log write failed",
		zap.String("batch_id", entry.BatchID),
		zap.String("slug", entry.ArticleSlug),
		zap.String("action", string(entry.Action)),
		zap.Error(err))
}
