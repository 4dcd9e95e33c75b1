package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kinderwise/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu      sync.Mutex
	entries []model.IngestionLogEntry
	err     error
}

func (s *memorySink) AppendLog(_ context.Context, entry model.IngestionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memorySink) all() []model.IngestionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.IngestionLogEntry(nil), s.entries...)
}

type panicSink struct{}

func (panicSink) AppendLog(context.Context, model.IngestionLogEntry) error {
	panic("sink exploded")
}

// TestDrainer_RedisToSink pushes through a real Redis list and checks the
// drainer writes the entry to the sink.
func TestDrainer_RedisToSink(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	q, err := NewRedisQueue(mr.Addr())
	require.NoError(t, err)
	defer q.Close()

	sink := &memorySink{}
	auditor := NewQueueAuditor(q, zap.NewNop())
	auditor.Record(context.Background(), model.IngestionLogEntry{
		BatchID:     "batch-1",
		ArticleSlug: "sleep-basics",
		Action:      model.ActionCreate,
		Status:      model.BatchSuccess,
		Metadata:    map[string]any{"article_id": "abc"},
	})

	queued, err := mr.List(queueKey)
	require.NoError(t, err)
	assert.Len(t, queued, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewDrainer(q, sink, zap.NewNop()).Start(ctx)

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 10*time.Millisecond)

	got := sink.all()[0]
	assert.Equal(t, "batch-1", got.BatchID)
	assert.Equal(t, "sleep-basics", got.ArticleSlug)
	assert.Equal(t, model.ActionCreate, got.Action)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, map[string]any{"article_id": "abc"}, got.Metadata)
}

func TestDrainer_StopsOnCancel(t *testing.T) {
	q := NewChanQueue(4)
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		NewDrainer(q, &memorySink{}, zap.NewNop()).Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drainer did not stop")
	}
}

func TestDrainer_FlushesChanQueueOnCancel(t *testing.T) {
	q := NewChanQueue(64)
	for i := 0; i < 50; i++ {
		require.NoError(t, q.Push(context.Background(), model.NewLogEntry("b", "s", model.ActionCreate, model.BatchSuccess)))
	}

	sink := &memorySink{}
	d := NewDrainer(q, sink, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go d.Start(ctx)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("drainer did not finish")
	}
	assert.Len(t, sink.all(), 50)
	assert.Zero(t, q.Pending())
}

type slowSink struct {
	memorySink
	delay time.Duration
}

func (s *slowSink) AppendLog(ctx context.Context, entry model.IngestionLogEntry) error {
	time.Sleep(s.delay)
	return s.memorySink.AppendLog(ctx, entry)
}

func TestDrainer_FlushIsBounded(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	q := NewChanQueue(16)
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(context.Background(), model.NewLogEntry("b", "s", model.ActionCreate, model.BatchSuccess)))
	}

	d := NewDrainer(q, &slowSink{delay: 20 * time.Millisecond}, zap.New(core))
	d.flushTimeout = 30 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go d.Start(ctx)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flush was not bounded")
	}
	require.Equal(t, 1, logs.FilterMessage("Audit flush timed out, entries dropped").Len())
	assert.Positive(t, q.Pending())
}

func TestDrainer_SinkFailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	q := NewChanQueue(4)
	sink := &memorySink{err: errors.New("table missing")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewDrainer(q, sink, zap.New(core)).Start(ctx)

	NewQueueAuditor(q, zap.NewNop()).Record(ctx, model.NewLogEntry("b", "s", model.ActionError, model.BatchError))

	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Audit log write failed", logs.All()[0].Message)
}

func TestQueueAuditor_PushFailureIsSwallowed(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	q, err := NewRedisQueue(mr.Addr())
	require.NoError(t, err)
	defer q.Close()
	mr.Close()

	core, logs := observer.New(zapcore.ErrorLevel)
	auditor := NewQueueAuditor(q, zap.New(core))

	assert.NotPanics(t, func() {
		auditor.Record(context.Background(), model.NewLogEntry("b", "s", model.ActionCreate, model.BatchSuccess))
	})
	assert.Equal(t, 1, logs.Len())
}

func TestQueueAuditor_SurvivesCancelledRequest(t *testing.T) {
	q := NewChanQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewQueueAuditor(q, zap.NewNop()).Record(ctx, model.NewLogEntry("b", "s", model.ActionCreate, model.BatchSuccess))

	entry, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", entry.BatchID)
}

func TestChanQueue_FullDropsEntry(t *testing.T) {
	q := NewChanQueue(1)
	require.NoError(t, q.Push(context.Background(), model.IngestionLogEntry{BatchID: "1"}))
	assert.ErrorIs(t, q.Push(context.Background(), model.IngestionLogEntry{BatchID: "2"}), ErrQueueFull)
}

func TestDirectAuditor_RecoversFromPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	auditor := NewDirectAuditor(panicSink{}, zap.New(core))

	assert.NotPanics(t, func() {
		auditor.Record(context.Background(), model.NewLogEntry("b", "s", model.ActionCreate, model.BatchSuccess))
	})
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "sink exploded")
}

func TestDirectAuditor_Writes(t *testing.T) {
	sink := &memorySink{}
	NewDirectAuditor(sink, zap.NewNop()).Record(context.Background(), model.IngestionLogEntry{BatchID: "b"})

	got := sink.all()
	require.Len(t, got, 1)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
}

func TestRedisQueue_FIFO(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	q, err := NewRedisQueue(mr.Addr())
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	first := model.NewLogEntry("b1", "first", model.ActionCreate, model.BatchSuccess)
	second := model.NewLogEntry("b1", "second", model.ActionCreate, model.BatchSuccess)
	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", got.ArticleSlug)
	got, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.ArticleSlug)
}
