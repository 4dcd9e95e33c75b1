package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusArchived  ArticleStatus = "archived"
)

// Article is the stored form of a content bundle, keyed by slug.
type Article struct {
	ID              uuid.UUID       `json:"id"`
	Slug            string          `json:"slug"`
	Type            string          `json:"type"`
	Hub             string          `json:"hub"`
	Locale          string          `json:"locale"`
	Title           string          `json:"title"`
	OneLiner        string          `json:"one_liner"`
	KeyFacts        []string        `json:"key_facts"`
	AgeRange        []string        `json:"age_range"`
	Region          string          `json:"region"`
	LastReviewed    string          `json:"last_reviewed"`
	ReviewedBy      string          `json:"reviewed_by"`
	Entities        []string        `json:"entities"`
	License         string          `json:"license"`
	Body            string          `json:"body_md,omitempty"`
	Steps           json.RawMessage `json:"steps"`
	FAQ             json.RawMessage `json:"faq"`
	Citations       []Citation      `json:"citations"`
	MetaTitle       string          `json:"meta_title,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
	Keywords        []string        `json:"keywords"`
	Status          ArticleStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewArticle creates a published Article from upsert parameters.
func NewArticle(p UpsertParams) Article {
	now := time.Now().UTC()
	a := Article{
		ID:        uuid.New(),
		Status:    StatusPublished,
		CreatedAt: now,
	}
	a.Apply(p)
	a.UpdatedAt = now
	return a
}

// Apply overwrites the content fields with p. ID, Status and CreatedAt are kept.
func (a *Article) Apply(p UpsertParams) {
	a.Slug = p.Slug
	a.Type = p.Type
	a.Hub = p.Hub
	a.Locale = p.Locale
	a.Title = p.Title
	a.OneLiner = p.OneLiner
	a.KeyFacts = p.KeyFacts
	a.AgeRange = p.AgeRange
	a.Region = p.Region
	a.LastReviewed = p.LastReviewed
	a.ReviewedBy = p.ReviewedBy
	a.Entities = p.Entities
	a.License = p.License
	a.Body = p.Body
	a.Steps = p.Steps
	a.FAQ = p.FAQ
	a.Citations = p.Citations
	a.MetaTitle = p.MetaTitle
	a.MetaDescription = p.MetaDescription
	a.Keywords = p.Keywords
	a.UpdatedAt = time.Now().UTC()
}

// Published reports whether the article is visible on the public surfaces.
func (a Article) Published() bool {
	return a.Status == StatusPublished
}
