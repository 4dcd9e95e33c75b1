// Package scraper turns health authority feeds into draft content bundles
// and submits them through the ingestion pipeline.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"kinderwise/internal/config"
	"kinderwise/internal/ingest"
	"kinderwise/internal/model"
	"kinderwise/internal/validate"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/gosimple/slug"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const (
	maxFacts        = 8
	minFactLength   = 20
	maxFactLength   = 240
	defaultMaxItems = 20
)

// Extractor downloads a page and returns its readable content.
// Tests swap in a fake so no network is touched.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*readability.Article, error)
}

// HTTPExtractor fetches pages over HTTP and runs readability on them.
type HTTPExtractor struct {
	client    *http.Client
	userAgent string
}

func NewHTTPExtractor(timeout time.Duration, userAgent string) *HTTPExtractor {
	return &HTTPExtractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) (*readability.Article, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return &article, nil
}

// Submitter is the ingestion entry point the scraper feeds.
type Submitter interface {
	Process(ctx context.Context, batchID string, bundles []any) ingest.Outcome
}

type Scraper struct {
	feeds     *gofeed.Parser
	extractor Extractor
	submitter Submitter
	converter *md.Converter
	logger    *zap.Logger
	now       func() time.Time
}

func New(extractor Extractor, submitter Submitter, userAgent string, logger *zap.Logger) *Scraper {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Scraper{
		feeds:     parser,
		extractor: extractor,
		submitter: submitter,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
		now:       time.Now,
	}
}

// Run scrapes one source. Items are fetched one after another; an item whose
// page cannot be fetched is skipped, everything else goes to the batch.
func (s *Scraper) Run(ctx context.Context, src config.SourceConfig) (ingest.Outcome, error) {
	logger := s.logger.With(zap.String("source", src.Name))

	feed, err := s.feeds.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return ingest.Outcome{}, fmt.Errorf("read feed %s: %w", src.Name, err)
	}

	limit := src.MaxItems
	if limit <= 0 {
		limit = defaultMaxItems
	}

	var bundles []any
	for _, item := range feed.Items {
		if len(bundles) >= limit {
			break
		}
		if item.Link == "" {
			continue
		}

		logger.Info("Downloading", zap.String("url", item.Link))
		article, err := s.extractor.Extract(ctx, item.Link)
		if err != nil {
			logger.Warn("Extraction failed", zap.String("url", item.Link), zap.Error(err))
			continue
		}

		raw, err := s.Draft(src, item, article).Raw()
		if err != nil {
			logger.Warn("Draft encoding failed", zap.String("url", item.Link), zap.Error(err))
			continue
		}
		bundles = append(bundles, raw)
	}

	if len(bundles) == 0 {
		return ingest.Outcome{}, fmt.Errorf("source %s produced no articles", src.Name)
	}

	batchID := fmt.Sprintf("scrape-%s-%s", slug.Make(src.Name), s.now().UTC().Format("2006-01-02"))
	return s.submitter.Process(ctx, batchID, bundles), nil
}

// Draft builds a bundle from a feed item and its extracted page.
func (s *Scraper) Draft(src config.SourceConfig, item *gofeed.Item, article *readability.Article) model.ContentBundle {
	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = strings.TrimSpace(item.Title)
	}

	summary := oneLiner(article.Excerpt, stripTags(item.Description), bodySentence(article.Content))

	body, err := s.converter.ConvertString(article.Content)
	if err != nil {
		s.logger.Warn("Markdown conversion failed", zap.String("url", item.Link), zap.Error(err))
		body = ""
	}

	bundle := model.ContentBundle{
		Slug:            slug.Make(title),
		Type:            src.Type,
		Hub:             src.Hub,
		Title:           title,
		OneLiner:        clip(summary, 200),
		KeyFacts:        keyFacts(article.Content),
		LastReviewed:    s.now().UTC().Format("2006-01-02"),
		ReviewedBy:      "scraper:" + src.Name,
		Entities:        entities(item),
		BodyMD:          strings.TrimSpace(body),
		Citations:       []model.Citation{{Title: title, URL: item.Link, Publisher: src.Name}},
		MetaTitle:       clip(title, 60),
		MetaDescription: clip(summary, 160),
	}
	return bundle
}

// oneLiner starts from the excerpt and pads it with the feed description,
// then the first body sentence, until it is long enough to publish.
func oneLiner(excerpt, description, sentence string) string {
	summary := collapse(excerpt)
	for _, extra := range []string{description, sentence} {
		if utf8.RuneCountInString(summary) >= validate.MinOneLiner {
			break
		}
		extra = collapse(extra)
		if extra == "" || strings.Contains(summary, extra) {
			continue
		}
		if summary == "" {
			summary = extra
			continue
		}
		if !strings.ContainsAny(summary[len(summary)-1:], ".!?") {
			summary += "."
		}
		summary += " " + extra
	}
	return summary
}

func bodySentence(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return firstSentence(doc.Find("p").First().Text())
}

// keyFacts prefers list items; paragraphs' first sentences fill any gap.
func keyFacts(content string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var facts []string
	seen := map[string]bool{}
	add := func(text string) {
		text = collapse(text)
		n := utf8.RuneCountInString(text)
		if n < minFactLength || n > maxFactLength || seen[text] || len(facts) >= maxFacts {
			return
		}
		seen[text] = true
		facts = append(facts, text)
	}

	doc.Find("li").Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})
	if len(facts) < 3 {
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			add(firstSentence(sel.Text()))
		})
	}
	return facts
}

func entities(item *gofeed.Item) []string {
	out := []string{}
	for _, c := range item.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func firstSentence(text string) string {
	text = collapse(text)
	if i := strings.Index(text, ". "); i > 0 {
		return text[:i+1]
	}
	return text
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

// clip shortens s to at most n runes, cutting at a word boundary when it can.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n-1]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}
