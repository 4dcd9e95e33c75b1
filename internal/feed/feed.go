// Package feed renders published articles in machine-readable formats for
// search engines, feed readers and LLM crawlers.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"kinderwise/internal/model"

	"github.com/gorilla/feeds"
)

const reviewedLayout = "2006-01-02"

// Site describes the publication the feeds belong to.
type Site struct {
	Title       string
	BaseURL     string
	Description string
}

type Builder struct {
	site Site
}

func NewBuilder(site Site) *Builder {
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &Builder{site: site}
}

// Link is the public page of an article.
func (b *Builder) Link(a model.Article) string {
	return fmt.Sprintf("%s/%s/%s", b.site.BaseURL, a.Hub, a.Slug)
}

func published(a model.Article) time.Time {
	if t, err := time.Parse(reviewedLayout, a.LastReviewed); err == nil {
		return t
	}
	return a.UpdatedAt
}

type ndjsonRecord struct {
	Slug         string           `json:"slug"`
	URL          string           `json:"url"`
	Type         string           `json:"type"`
	Hub          string           `json:"hub"`
	Title        string           `json:"title"`
	OneLiner     string           `json:"one_liner"`
	KeyFacts     []string         `json:"key_facts"`
	LastReviewed string           `json:"last_reviewed"`
	ReviewedBy   string           `json:"reviewed_by"`
	Entities     []string         `json:"entities"`
	Citations    []model.Citation `json:"citations"`
	License      string           `json:"license"`
	Locale       string           `json:"locale"`
	Evidence     model.Evidence   `json:"evidence"`
}

// NDJSON writes one JSON object per article per line.
func (b *Builder) NDJSON(w io.Writer, articles []model.Article) error {
	enc := json.NewEncoder(w)
	for _, a := range articles {
		rec := ndjsonRecord{
			Slug:         a.Slug,
			URL:          b.Link(a),
			Type:         a.Type,
			Hub:          a.Hub,
			Title:        a.Title,
			OneLiner:     a.OneLiner,
			KeyFacts:     a.KeyFacts,
			LastReviewed: a.LastReviewed,
			ReviewedBy:   a.ReviewedBy,
			Entities:     a.Entities,
			Citations:    a.Citations,
			License:      a.License,
			Locale:       a.Locale,
			Evidence:     model.EvidenceFor(a.Citations),
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// RSS writes an RSS 2.0 document.
func (b *Builder) RSS(w io.Writer, articles []model.Article) error {
	channel := &feeds.Feed{
		Title:       b.site.Title,
		Link:        &feeds.Link{Href: b.site.BaseURL},
		Description: b.site.Description,
		Updated:     latest(articles),
	}
	for _, a := range articles {
		link := b.Link(a)
		channel.Items = append(channel.Items, &feeds.Item{
			Id:          link,
			Title:       a.Title,
			Link:        &feeds.Link{Href: link},
			Description: a.OneLiner,
			Created:     published(a),
		})
	}
	return channel.WriteRss(w)
}

func latest(articles []model.Article) time.Time {
	var t time.Time
	for _, a := range articles {
		if a.UpdatedAt.After(t) {
			t = a.UpdatedAt
		}
	}
	return t
}

// JSONFeed is a JSON Feed 1.1 document.
type JSONFeed struct {
	Version     string         `json:"version"`
	Title       string         `json:"title"`
	HomePageURL string         `json:"home_page_url"`
	FeedURL     string         `json:"feed_url"`
	Description string         `json:"description,omitempty"`
	Items       []JSONFeedItem `json:"items"`
}

type JSONFeedItem struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	ContentText   string   `json:"content_text,omitempty"`
	DatePublished string   `json:"date_published"`
	DateModified  string   `json:"date_modified,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Language      string   `json:"language,omitempty"`
}

func (b *Builder) JSONFeed(articles []model.Article) JSONFeed {
	feed := JSONFeed{
		Version:     "https://jsonfeed.org/version/1.1",
		Title:       b.site.Title,
		HomePageURL: b.site.BaseURL,
		FeedURL:     b.site.BaseURL + "/feed.json",
		Description: b.site.Description,
		Items:       []JSONFeedItem{},
	}
	for _, a := range articles {
		item := JSONFeedItem{
			ID:            a.ID.String(),
			URL:           b.Link(a),
			Title:         a.Title,
			Summary:       a.OneLiner,
			ContentText:   a.Body,
			DatePublished: published(a).Format(time.RFC3339),
			Tags:          append([]string{a.Hub}, a.Keywords...),
			Language:      a.Locale,
		}
		if !a.UpdatedAt.IsZero() {
			item.DateModified = a.UpdatedAt.Format(time.RFC3339)
		}
		feed.Items = append(feed.Items, item)
	}
	return feed
}

// LLMsTxt writes an llms.txt index: the site, then one section per hub.
func (b *Builder) LLMsTxt(w io.Writer, articles []model.Article) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.site.Title)
	if b.site.Description != "" {
		fmt.Fprintf(&sb, "> %s\n\n", b.site.Description)
	}
	fmt.Fprintf(&sb, "Machine-readable exports: %[1]s/feed.ndjson, %[1]s/feed.json, %[1]s/rss.xml\n", b.site.BaseURL)

	byHub := map[string][]model.Article{}
	for _, a := range articles {
		byHub[a.Hub] = append(byHub[a.Hub], a)
	}
	hubs := make([]string, 0, len(byHub))
	for hub := range byHub {
		hubs = append(hubs, hub)
	}
	sort.Strings(hubs)

	for _, hub := range hubs {
		fmt.Fprintf(&sb, "\n## %s\n\n", hubTitle(hub))
		items := byHub[hub]
		sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
		for _, a := range items {
			fmt.Fprintf(&sb, "- [%s](%s): %s\n", a.Title, b.Link(a), a.OneLiner)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func hubTitle(hub string) string {
	words := strings.Fields(strings.ReplaceAll(hub, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
