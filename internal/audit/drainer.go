package audit

import (
	"context"
	"time"

	"kinderwise/internal/model"

	"go.uber.org/zap"
)

const defaultFlushTimeout = 5 * time.Second

// flusher is a Queue whose pending entries die with the process.
type flusher interface {
	TryPop() (model.IngestionLogEntry, bool)
	Pending() int
}

// Drainer moves entries from a Queue into a Sink.
type Drainer struct {
	queue        Queue
	sink         Sink
	logger       *zap.Logger
	backoff      time.Duration
	flushTimeout time.Duration
	done         chan struct{}
}

func NewDrainer(q Queue, sink Sink, logger *zap.Logger) *Drainer {
	return &Drainer{
		queue:        q,
		sink:         sink,
		logger:       logger,
		backoff:      time.Second,
		flushTimeout: defaultFlushTimeout,
		done:         make(chan struct{}),
	}
}

// Start runs the drain loop until ctx is cancelled. An in-process queue is
// then flushed to the Sink, bounded by the flush timeout. Start must be
// called once; Done is closed when it returns.
func (d *Drainer) Start(ctx context.Context) {
	defer close(d.done)
	d.logger.Info("Audit drainer started. Waiting for entries...")

	for {
		if ctx.Err() != nil {
			d.shutdown()
			return
		}

		entry, err := d.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				d.shutdown()
				return
			}
			d.logger.Error("Audit queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				d.shutdown()
				return
			case <-time.After(d.backoff):
			}
			continue
		}

		d.write(context.WithoutCancel(ctx), entry)
	}
}

// Done is closed once Start has returned and no write is in flight.
func (d *Drainer) Done() <-chan struct{} {
	return d.done
}

func (d *Drainer) write(ctx context.Context, entry model.IngestionLogEntry) {
	guard(d.logger, entry, func() error {
		return d.sink.AppendLog(ctx, entry)
	})
}

func (d *Drainer) shutdown() {
	d.flush()
	d.logger.Info("Audit drainer shutting down")
}

func (d *Drainer) flush() {
	q, ok := d.queue.(flusher)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.flushTimeout)
	defer cancel()

	flushed := 0
	for ctx.Err() == nil {
		entry, ok := q.TryPop()
		if !ok {
			break
		}
		d.write(ctx, entry)
		flushed++
	}

	if left := q.Pending(); left > 0 {
		d.logger.Warn("Audit flush timed out, entries dropped",
			zap.Int("flushed", flushed),
			zap.Int("dropped", left))
		return
	}
	if flushed > 0 {
		d.logger.Info("Flushed pending audit entries", zap.Int("count", flushed))
	}
}
