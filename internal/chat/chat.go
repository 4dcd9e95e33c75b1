// Package chat answers parent questions from canned guidance, the article
// library and, when configured, a language model.
package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"kinderwise/internal/model"
	"kinderwise/internal/store"

	"go.uber.org/zap"
)

const maxRelated = 3

var ErrEmptyMessage = errors.New("message is required")

type Source string

const (
	SourceCanned   Source = "canned"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

type Reply struct {
	Answer  string   `json:"answer"`
	Source  Source   `json:"source"`
	Related []string `json:"related"`
}

type canned struct {
	pattern *regexp.Regexp
	answer  string
}

var cannedAnswers = []canned{
	{
		regexp.MustCompile(`(?i)\b(fever|temperature)\b`),
		"For babies under 3 months, a temperature of 38°C (100.4°F) or higher needs urgent medical advice. " +
			"Older children with a fever can usually be kept comfortable with fluids and rest; seek help if they are drowsy, " +
			"will not feed, or the fever lasts more than 5 days.",
	},
	{
		regexp.MustCompile(`(?i)\b(sids|safe sleep|sleep position|back to sleep)\b`),
		"Always put babies on their back to sleep, on a firm flat mattress with no pillows, bumpers or soft toys, " +
			"in the same room as you for the first 6 months.",
	},
	{
		regexp.MustCompile(`(?i)\b(solids?|weaning|first foods?)\b`),
		"Most babies are ready for solid food at around 6 months, when they can sit up, hold their head steady " +
			"and bring food to their mouth. Start with soft finger foods or mashed vegetables alongside milk feeds.",
	},
	{
		regexp.MustCompile(`(?i)\b(vaccines?|vaccinations?|immuni[sz]ations?|jabs?)\b`),
		"Routine vaccines protect against serious illnesses and are scheduled from 8 weeks of age. " +
			"Check your local immunisation schedule and talk to your health visitor or doctor about any concerns.",
	},
	{
		regexp.MustCompile(`(?i)\b(choking|choke)\b`),
		"If a baby is choking and cannot cough, call emergency services and give up to 5 back blows, then up to 5 chest thrusts. " +
			"Cut round foods like grapes lengthways to prevent choking.",
	},
}

var stopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "should": true, "could": true,
	"would": true, "does": true, "baby": true, "babies": true, "child": true, "my": true,
	"with": true, "from": true, "have": true, "that": true, "this": true, "about": true,
	"much": true, "many": true, "there": true, "their": true, "your": true, "they": true,
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}-]+`)

type Service struct {
	articles  store.ContentStore
	completer Completer
	logger    *zap.Logger
}

// NewService builds a chat service. completer may be nil, in which case
// unmatched questions get the fallback answer. When set, it is asked even if
// no article matched.
func NewService(articles store.ContentStore, completer Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{articles: articles, completer: completer, logger: logger}
}

func (s *Service) Ask(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	related, err := s.related(ctx, message)
	if err != nil {
		return Reply{}, err
	}
	slugs := make([]string, 0, len(related))
	for _, a := range related {
		slugs = append(slugs, a.Slug)
	}

	for _, c := range cannedAnswers {
		if c.pattern.MatchString(message) {
			return Reply{Answer: c.answer, Source: SourceCanned, Related: slugs}, nil
		}
	}

	if s.completer != nil {
		answer, err := s.completer.Complete(ctx, message, snippets(related))
		if err == nil {
			return Reply{Answer: answer, Source: SourceLLM, Related: slugs}, nil
		}
		s.logger.Warn("LLM completion failed", zap.Error(err))
	}

	return Reply{Answer: fallback(related), Source: SourceFallback, Related: slugs}, nil
}

// related returns up to three published articles matching the message's
// keywords, in keyword order.
func (s *Service) related(ctx context.Context, message string) ([]model.Article, error) {
	var out []model.Article
	seen := map[string]bool{}
	for _, word := range keywords(message) {
		found, err := s.articles.List(ctx, store.Query{
			Status: model.StatusPublished,
			Search: word,
			Limit:  maxRelated,
		})
		if err != nil {
			return nil, err
		}
		for _, a := range found {
			if seen[a.Slug] {
				continue
			}
			seen[a.Slug] = true
			out = append(out, a)
			if len(out) == maxRelated {
				return out, nil
			}
		}
	}
	return out, nil
}

func keywords(message string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(message), -1) {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func snippets(articles []model.Article) []Snippet {
	out := make([]Snippet, 0, len(articles))
	for _, a := range articles {
		out = append(out, Snippet{Title: a.Title, OneLiner: a.OneLiner, KeyFacts: a.KeyFacts})
	}
	return out
}

func fallback(related []model.Article) string {
	if len(related) == 0 {
		return "I don't have guidance on that yet. For anything urgent, contact your doctor or local health service."
	}
	var sb strings.Builder
	sb.WriteString("These articles may help: ")
	for i, a := range related {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(a.Title)
	}
	sb.WriteString(". For anything urgent, contact your doctor or local health service.")
	return sb.String()
}
