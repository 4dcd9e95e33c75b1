package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kinderwise/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const upsertCall = `upsert_article_bundle(
	p_slug => ?, p_type => ?, p_hub => ?, p_locale => ?, p_title => ?,
	p_one_liner => ?, p_key_facts => ?, p_age_range => ?, p_region => ?,
	p_last_reviewed => ?, p_reviewed_by => ?, p_entities => ?, p_license => ?,
	p_body_md => ?, p_steps => ?, p_faq => ?, p_citations => ?,
	p_meta_title => ?, p_meta_description => ?, p_keywords => ?)`

var articleColumns = []string{
	"id", "slug", "type", "hub", "locale", "title", "one_liner", "key_facts", "age_range",
	"region", "to_char(last_reviewed, 'YYYY-MM-DD') AS last_reviewed", "reviewed_by", "entities",
	"license", "COALESCE(body_md, '') AS body_md", "steps", "faq", "citations",
	"COALESCE(meta_title, '') AS meta_title", "COALESCE(meta_description, '') AS meta_description",
	"keywords", "status", "created_at", "updated_at",
}

var logColumns = []string{
	"id", "batch_id", "article_slug", "action", "status", "error_message", "metadata", "created_at",
}

// PostgresStore is the production store. Writes go through the
// upsert_article_bundle procedure installed by the migrations.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func upsertQuery(p model.UpsertParams) (string, []any, error) {
	citations, err := json.Marshal(p.Citations)
	if err != nil {
		return "", nil, err
	}

	return psql.Select().Column(sq.Expr(upsertCall,
		p.Slug, p.Type, p.Hub, p.Locale, p.Title,
		p.OneLiner, pq.Array(p.KeyFacts), pq.Array(p.AgeRange), p.Region,
		p.LastReviewed, p.ReviewedBy, pq.Array(p.Entities), p.License,
		nullString(p.Body), jsonList(p.Steps), jsonList(p.FAQ), string(citations),
		nullString(p.MetaTitle), nullString(p.MetaDescription), pq.Array(p.Keywords),
	)).ToSql()
}

func (s *PostgresStore) UpsertBundle(ctx context.Context, p model.UpsertParams) (uuid.UUID, error) {
	query, args, err := upsertQuery(p)
	if err != nil {
		return uuid.Nil, fmt.Errorf("build upsert: %w", err)
	}

	var id uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("upsert %s: %w", p.Slug, err)
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, slug string) (*model.Article, error) {
	query, args, err := psql.Select(articleColumns...).From("articles").Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return nil, err
	}

	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", slug, err)
	}
	return article, nil
}

func listQuery(q Query) sq.SelectBuilder {
	q = q.normalized()
	b := psql.Select(articleColumns...).From("articles")
	if q.Status != "" {
		b = b.Where(sq.Eq{"status": string(q.Status)})
	}
	if q.Hub != "" {
		b = b.Where(sq.Eq{"hub": q.Hub})
	}
	if q.Type != "" {
		b = b.Where(sq.Eq{"type": q.Type})
	}
	if q.Search != "" {
		term := "%" + likeEscaper.Replace(q.Search) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"title": term},
			sq.ILike{"one_liner": term},
			sq.Expr("? = ANY(keywords)", q.Search),
		})
	}
	return b.OrderBy("updated_at DESC").Limit(uint64(q.Limit)).Offset(uint64(q.Offset))
}

func (s *PostgresStore) List(ctx context.Context, q Query) ([]model.Article, error) {
	query, args, err := listQuery(q).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("articles").ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	var (
		a                     model.Article
		steps, faq, citations []byte
		status                string
	)
	err := row.Scan(
		&a.ID, &a.Slug, &a.Type, &a.Hub, &a.Locale, &a.Title, &a.OneLiner,
		pq.Array(&a.KeyFacts), pq.Array(&a.AgeRange), &a.Region, &a.LastReviewed,
		&a.ReviewedBy, pq.Array(&a.Entities), &a.License, &a.Body,
		&steps, &faq, &citations, &a.MetaTitle, &a.MetaDescription,
		pq.Array(&a.Keywords), &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = model.ArticleStatus(status)

	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{steps, &a.Steps},
		{faq, &a.FAQ},
		{citations, &a.Citations},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("decode %s json: %w", a.Slug, err)
		}
	}
	return &a, nil
}

func appendLogQuery(entry model.IngestionLogEntry) (string, []any, error) {
	var metadata any
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(data)
	}

	return psql.Insert("ingestion_logs").
		Columns(logColumns...).
		Values(entry.ID, entry.BatchID, nullString(entry.ArticleSlug), string(entry.Action),
			string(entry.Status), nullString(entry.ErrorMessage), metadata, entry.CreatedAt).
		ToSql()
}

func (s *PostgresStore) AppendLog(ctx context.Context, entry model.IngestionLogEntry) error {
	query, args, err := appendLogQuery(entry)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append ingestion log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Logs(ctx context.Context, batchID string) ([]model.IngestionLogEntry, error) {
	query, args, err := psql.Select(logColumns...).From("ingestion_logs").
		Where(sq.Eq{"batch_id": batchID}).OrderBy("created_at").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ingestion logs: %w", err)
	}
	defer rows.Close()

	var entries []model.IngestionLogEntry
	for rows.Next() {
		var (
			e              model.IngestionLogEntry
			slug, errMsg   sql.NullString
			action, status string
			metadata       []byte
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &slug, &action, &status, &errMsg, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ingestion log: %w", err)
		}
		e.ArticleSlug = slug.String
		e.ErrorMessage = errMsg.String
		e.Action = model.LogAction(action)
		e.Status = model.BatchStatus(status)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// likeEscaper makes a search term match literally inside ILIKE, whose
// default escape character is a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// jsonList sends a missing JSONB list as an empty array.
func jsonList(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
