package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"kinderwise/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	articlePrefix = "article:"
	logPrefix     = "log:"
)

// BadgerStore keeps articles and the ingestion log in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens the database at path. Pass path="" for an in-memory store.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunGC reclaims value log space every interval until ctx is done.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.7)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Warn("Badger value log GC failed", zap.Error(err))
			}
		}
	}
}

func articleKey(slug string) []byte {
	return []byte(articlePrefix + slug)
}

func (s *BadgerStore) UpsertBundle(ctx context.Context, p model.UpsertParams) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err := s.db.Update(func(txn *badger.Txn) error {
		var article model.Article

		item, err := txn.Get(articleKey(p.Slug))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			article = model.NewArticle(p)
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &article)
			}); err != nil {
				return err
			}
			article.Apply(p)
		}

		data, err := json.Marshal(article)
		if err != nil {
			return err
		}
		id = article.ID
		return txn.Set(articleKey(p.Slug), data)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert %s: %w", p.Slug, err)
	}
	return id, nil
}

func (s *BadgerStore) Get(_ context.Context, slug string) (*model.Article, error) {
	var article model.Article
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(articleKey(slug))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &article)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (s *BadgerStore) List(_ context.Context, q Query) ([]model.Article, error) {
	q = q.normalized()
	search := strings.ToLower(strings.TrimSpace(q.Search))

	var matched []model.Article
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(articlePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a model.Article
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			if matches(a, q, search) {
				matched = append(matched, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	if q.Offset >= len(matched) {
		return []model.Article{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], nil
}

func matches(a model.Article, q Query, search string) bool {
	if q.Status != "" && a.Status != q.Status {
		return false
	}
	if q.Hub != "" && a.Hub != q.Hub {
		return false
	}
	if q.Type != "" && a.Type != q.Type {
		return false
	}
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.Title), search) ||
		strings.Contains(strings.ToLower(a.OneLiner), search) {
		return true
	}
	for _, k := range a.Keywords {
		if strings.Contains(strings.ToLower(k), search) {
			return true
		}
	}
	return false
}

func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(articlePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Log keys sort by batch then creation time, so a prefix scan returns a batch in order.
// The batch ID is hex-encoded so it never contains the ':' separator.
func logKey(entry model.IngestionLogEntry) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", batchLogPrefix(entry.BatchID), entry.CreatedAt.UnixNano(), entry.ID))
}

func batchLogPrefix(batchID string) string {
	return logPrefix + hex.EncodeToString([]byte(batchID)) + ":"
}

func (s *BadgerStore) AppendLog(_ context.Context, entry model.IngestionLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(entry), data)
	})
}

func (s *BadgerStore) Logs(_ context.Context, batchID string) ([]model.IngestionLogEntry, error) {
	var entries []model.IngestionLogEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(batchLogPrefix(batchID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e model.IngestionLogEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}
