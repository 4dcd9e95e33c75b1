package audit

import (
	"context"

	"kinderwise/internal/model"
)

// ChanQueue is an in-process Queue used when Redis is not configured.
// Push never blocks; a full buffer drops the entry with ErrQueueFull.
type ChanQueue struct {
	ch chan model.IngestionLogEntry
}

func NewChanQueue(size int) *ChanQueue {
	if size <= 0 {
		size = 1024
	}
	return &ChanQueue{ch: make(chan model.IngestionLogEntry, size)}
}

func (q *ChanQueue) Push(_ context.Context, entry model.IngestionLogEntry) error {
	select {
	case q.ch <- entry:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChanQueue) Pop(ctx context.Context) (model.IngestionLogEntry, error) {
	select {
	case entry := <-q.ch:
		return entry, nil
	case <-ctx.Done():
		return model.IngestionLogEntry{}, ctx.Err()
	}
}

// TryPop returns the next entry without waiting.
func (q *ChanQueue) TryPop() (model.IngestionLogEntry, bool) {
	select {
	case entry := <-q.ch:
		return entry, true
	default:
		return model.IngestionLogEntry{}, false
	}
}

// Pending is the number of buffered entries.
func (q *ChanQueue) Pending() int {
	return len(q.ch)
}
