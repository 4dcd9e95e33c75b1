package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchResults_Status(t *testing.T) {
	cases := []struct {
		name       string
		successful int
		failed     int
		want       BatchStatus
	}{
		{"all succeed", 3, 0, BatchSuccess},
		{"all fail", 0, 3, BatchError},
		{"mixed", 2, 1, BatchPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewBatchResults(tc.successful + tc.failed)
			r.Successful = tc.successful
			r.Failed = tc.failed
			assert.Equal(t, tc.want, r.Status())
		})
	}
}

func TestUpsertParams_AppliesDefaults(t *testing.T) {
	b := ContentBundle{
		Slug:     "iron-rich-foods",
		KeyFacts: []string{"a", "b", "c"},
	}
	p := b.UpsertParams()

	assert.Equal(t, DefaultLocale, p.Locale)
	assert.Equal(t, DefaultRegion, p.Region)
	assert.Equal(t, DefaultLicense, p.License)
	assert.Equal(t, []string{"0-12m"}, p.AgeRange)
	assert.NotNil(t, p.Entities)
	assert.NotNil(t, p.Steps)
	assert.NotNil(t, p.FAQ)
	assert.NotNil(t, p.Citations)
}

func TestUpsertParams_KeepsProvidedValues(t *testing.T) {
	b := ContentBundle{Lang: "es", Region: "EU", License: "CC BY 4.0", AgeRange: []string{"1-3y"}}
	p := b.UpsertParams()

	assert.Equal(t, "es", p.Locale)
	assert.Equal(t, "EU", p.Region)
	assert.Equal(t, "CC BY 4.0", p.License)
	assert.Equal(t, []string{"1-3y"}, p.AgeRange)
}

func TestDecodeBundle_IsLenient(t *testing.T) {
	b, err := DecodeBundle(map[string]any{
		"slug":        "x",
		"title":       12.0,
		"reviewed_by": map[string]any{"name": "Dr. Ada"},
		"key_facts":   []any{"one", 2.0, true},
		"entities":    "iron",
		"steps":       []any{map[string]any{"title": "Wash hands"}},
		"faq":         "see body",
		"citations": []any{
			"https://www.cdc.gov/x",
			map[string]any{"title": "NHS", "url": "https://www.nhs.uk/y", "year": 2023.0},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "12", b.Title)
	assert.Equal(t, `{"name":"Dr. Ada"}`, b.ReviewedBy)
	assert.Equal(t, []string{"one", "2", "true"}, b.KeyFacts)
	assert.Equal(t, []string{"iron"}, b.Entities)
	assert.JSONEq(t, `[{"title":"Wash hands"}]`, string(b.Steps))
	assert.JSONEq(t, `"see body"`, string(b.FAQ))
	assert.Equal(t, []Citation{
		{URL: "https://www.cdc.gov/x"},
		{Title: "NHS", URL: "https://www.nhs.uk/y"},
	}, b.Citations)
}

func TestDecodeBundle_RejectsNonObject(t *testing.T) {
	_, err := DecodeBundle([]any{"not", "a", "bundle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bundle")
}

func TestUpsertParams_DefaultsFreeFormLists(t *testing.T) {
	p := ContentBundle{Steps: json.RawMessage(`null`)}.UpsertParams()
	assert.Equal(t, json.RawMessage(`[]`), p.Steps)
	assert.Equal(t, json.RawMessage(`[]`), p.FAQ)
}

func TestArticle_ApplyKeepsIdentity(t *testing.T) {
	a := NewArticle(UpsertParams{Slug: "sleep", Title: "Old"})
	id, created := a.ID, a.CreatedAt
	a.Status = StatusArchived

	a.Apply(UpsertParams{Slug: "sleep", Title: "New"})

	assert.Equal(t, id, a.ID)
	assert.Equal(t, created, a.CreatedAt)
	assert.Equal(t, StatusArchived, a.Status)
	assert.Equal(t, "New", a.Title)
}

func TestEvidenceFor(t *testing.T) {
	assert.Equal(t, Evidence{Level: EvidenceLow, TrustScore: 0}, EvidenceFor(nil))

	moderate := EvidenceFor([]Citation{
		{URL: "https://example.com/a"},
		{URL: "https://blog.example.org/b"},
	})
	assert.Equal(t, EvidenceModerate, moderate.Level)
	assert.Equal(t, 40, moderate.TrustScore)

	high := EvidenceFor([]Citation{
		{URL: "https://www.cdc.gov/nutrition"},
		{URL: "https://www.nhs.uk/conditions/baby"},
		{URL: "https://example.com"},
	})
	assert.Equal(t, EvidenceHigh, high.Level)
	assert.Equal(t, 80, high.TrustScore)

	many := make([]Citation, 6)
	for i := range many {
		many[i] = Citation{URL: "https://who.int/x"}
	}
	assert.Equal(t, 100, EvidenceFor(many).TrustScore)
}
