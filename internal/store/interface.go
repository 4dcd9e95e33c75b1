package store

import (
	"context"
	"errors"

	"kinderwise/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("article not found")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 1000
)

// Query filters article listings. Zero values match everything.
type Query struct {
	Status model.ArticleStatus
	Hub    string
	Type   string
	Search string
	Limit  int
	Offset int
}

func (q Query) normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// ContentStore persists articles keyed by slug.
type ContentStore interface {
	// UpsertBundle creates the article or overwrites the one with the same slug.
	UpsertBundle(ctx context.Context, p model.UpsertParams) (uuid.UUID, error)
	Get(ctx context.Context, slug string) (*model.Article, error)
	List(ctx context.Context, q Query) ([]model.Article, error)
	Count(ctx context.Context) (int, error)
}

// AuditStore is the append-only ingestion log.
type AuditStore interface {
	AppendLog(ctx context.Context, entry model.IngestionLogEntry) error
	Logs(ctx context.Context, batchID string) ([]model.IngestionLogEntry, error)
}

type Store interface {
	ContentStore
	AuditStore
	Close() error
}
