package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	DefaultLocale  = "en"
	DefaultRegion  = "GLOBAL"
	DefaultLicense = "CC BY-NC 4.0"
)

// DefaultAgeRange is used when a bundle does not name one.
var DefaultAgeRange = []string{"0-12m"}

var emptyList = json.RawMessage(`[]`)

type Citation struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url"`
	Publisher string `json:"publisher,omitempty"`
}

// ContentBundle is one article or knowledge-base entry submitted for ingestion.
// Steps and FAQ are free-form JSON and stored as given.
type ContentBundle struct {
	Slug         string   `json:"slug"`
	Type         string   `json:"type"`
	Hub          string   `json:"hub"`
	Title        string   `json:"title"`
	OneLiner     string   `json:"one_liner"`
	KeyFacts     []string `json:"key_facts"`
	LastReviewed string   `json:"last_reviewed"`
	ReviewedBy   string   `json:"reviewed_by"`
	Entities     []string `json:"entities"`

	BodyMD          string          `json:"body_md,omitempty"`
	Steps           json.RawMessage `json:"steps,omitempty"`
	FAQ             json.RawMessage `json:"faq,omitempty"`
	Citations       []Citation      `json:"citations,omitempty"`
	MetaTitle       string          `json:"meta_title,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
	AgeRange        []string        `json:"age_range,omitempty"`
	Region          string          `json:"region,omitempty"`
	License         string          `json:"license,omitempty"`
	Lang            string          `json:"lang,omitempty"`
}

var errNotObject = errors.New("bundle is not a JSON object")

// DecodeBundle converts a loosely-typed bundle into a ContentBundle. Any
// JSON object decodes: scalars of the wrong type are stringified, a single
// value where a list is expected becomes a one-element list, and a
// citation given as a bare string is taken as its URL.
func DecodeBundle(raw any) (ContentBundle, error) {
	var b ContentBundle

	fields, ok := raw.(map[string]any)
	if !ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return b, fmt.Errorf("invalid bundle: %w", err)
		}
		if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
			return b, fmt.Errorf("invalid bundle: %w", errNotObject)
		}
	}

	steps, err := rawJSON(fields["steps"])
	if err != nil {
		return b, fmt.Errorf("invalid bundle: steps: %w", err)
	}
	faq, err := rawJSON(fields["faq"])
	if err != nil {
		return b, fmt.Errorf("invalid bundle: faq: %w", err)
	}

	b = ContentBundle{
		Slug:            text(fields["slug"]),
		Type:            text(fields["type"]),
		Hub:             text(fields["hub"]),
		Title:           text(fields["title"]),
		OneLiner:        text(fields["one_liner"]),
		KeyFacts:        texts(fields["key_facts"]),
		LastReviewed:    text(fields["last_reviewed"]),
		ReviewedBy:      text(fields["reviewed_by"]),
		Entities:        texts(fields["entities"]),
		BodyMD:          text(fields["body_md"]),
		Steps:           steps,
		FAQ:             faq,
		Citations:       citations(fields["citations"]),
		MetaTitle:       text(fields["meta_title"]),
		MetaDescription: text(fields["meta_description"]),
		Keywords:        texts(fields["keywords"]),
		AgeRange:        texts(fields["age_range"]),
		Region:          text(fields["region"]),
		License:         text(fields["license"]),
		Lang:            text(fields["lang"]),
	}
	return b, nil
}

// text renders any JSON value as a string. Objects and arrays become
// compact JSON.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func texts(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, text(e))
		}
		return out
	case []string:
		return t
	default:
		return []string{text(t)}
	}
}

func citations(v any) []Citation {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		items = t
	default:
		items = []any{t}
	}

	out := make([]Citation, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case map[string]any:
			out = append(out, Citation{
				Title:     text(c["title"]),
				URL:       text(c["url"]),
				Publisher: text(c["publisher"]),
			})
		default:
			out = append(out, Citation{URL: text(c)})
		}
	}
	return out
}

func rawJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Raw returns the bundle as the generic map the ingestion pipeline consumes.
func (b ContentBundle) Raw() (map[string]any, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// UpsertParams is the flattened parameter set of the content store upsert.
type UpsertParams struct {
	Slug            string
	Type            string
	Hub             string
	Locale          string
	Title           string
	OneLiner        string
	KeyFacts        []string
	AgeRange        []string
	Region          string
	LastReviewed    string
	ReviewedBy      string
	Entities        []string
	License         string
	Body            string
	Steps           json.RawMessage
	FAQ             json.RawMessage
	Citations       []Citation
	MetaTitle       string
	MetaDescription string
	Keywords        []string
}

// UpsertParams applies the ingestion defaults and flattens the bundle.
func (b ContentBundle) UpsertParams() UpsertParams {
	p := UpsertParams{
		Slug:            b.Slug,
		Type:            b.Type,
		Hub:             b.Hub,
		Locale:          orDefault(b.Lang, DefaultLocale),
		Title:           b.Title,
		OneLiner:        b.OneLiner,
		KeyFacts:        nonNil(b.KeyFacts),
		AgeRange:        b.AgeRange,
		Region:          orDefault(b.Region, DefaultRegion),
		LastReviewed:    b.LastReviewed,
		ReviewedBy:      b.ReviewedBy,
		Entities:        nonNil(b.Entities),
		License:         orDefault(b.License, DefaultLicense),
		Body:            b.BodyMD,
		Steps:           orEmptyList(b.Steps),
		FAQ:             orEmptyList(b.FAQ),
		Citations:       b.Citations,
		MetaTitle:       b.MetaTitle,
		MetaDescription: b.MetaDescription,
		Keywords:        nonNil(b.Keywords),
	}
	if len(p.AgeRange) == 0 {
		p.AgeRange = append([]string(nil), DefaultAgeRange...)
	}
	if p.Citations == nil {
		p.Citations = []Citation{}
	}
	return p
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyList(v json.RawMessage) json.RawMessage {
	if len(v) == 0 || string(v) == "null" {
		return append(json.RawMessage(nil), emptyList...)
	}
	return v
}
