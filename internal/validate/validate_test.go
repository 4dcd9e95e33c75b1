package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func validBundle() map[string]any {
	return map[string]any{
		"slug":          "iron-rich-foods",
		"type":          "explainer",
		"hub":           "feeding",
		"title":         "Iron-rich foods for babies",
		"one_liner":     strings.Repeat("x", 50),
		"key_facts":     []any{"a", "b", "c"},
		"last_reviewed": "2024-03-01",
		"reviewed_by":   "AI",
		"entities":      []any{"iron"},
	}
}

func facts(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = "fact"
	}
	return out
}

func TestCheck_ValidExample(t *testing.T) {
	assert.NoError(t, Check(validBundle()))
	assert.True(t, New(nil).Validate(validBundle()))
}

func TestCheck_MissingRequiredField(t *testing.T) {
	for _, field := range RequiredFields {
		t.Run(field, func(t *testing.T) {
			b := validBundle()
			delete(b, field)
			err := Check(b)
			require.Error(t, err)

			var rule *RuleError
			require.ErrorAs(t, err, &rule)
			assert.Equal(t, field, rule.Field)
		})
	}
}

func TestCheck_FalsyRequiredField(t *testing.T) {
	b := validBundle()
	b["title"] = ""
	assert.Error(t, Check(b))

	b = validBundle()
	b["hub"] = nil
	assert.Error(t, Check(b))
}

func TestCheck_OneLinerBounds(t *testing.T) {
	cases := []struct {
		length int
		valid  bool
	}{
		{49, false},
		{50, true},
		{200, true},
		{201, false},
	}
	for _, tc := range cases {
		b := validBundle()
		b["one_liner"] = strings.Repeat("y", tc.length)
		assert.Equal(t, tc.valid, Check(b) == nil, "length %d", tc.length)
	}
}

func TestCheck_OneLinerCountsCharacters(t *testing.T) {
	b := validBundle()
	b["one_liner"] = strings.Repeat("é", 50)
	assert.NoError(t, Check(b))
}

func TestCheck_KeyFactsBounds(t *testing.T) {
	cases := []struct {
		count int
		valid bool
	}{
		{2, false},
		{3, true},
		{8, true},
		{9, false},
	}
	for _, tc := range cases {
		b := validBundle()
		b["key_facts"] = facts(tc.count)
		assert.Equal(t, tc.valid, Check(b) == nil, "count %d", tc.count)
	}
}

func TestCheck_KeyFactsMustBeArray(t *testing.T) {
	b := validBundle()
	b["key_facts"] = "a, b, c"
	assert.Error(t, Check(b))
}

func TestCheck_SlugPattern(t *testing.T) {
	for _, slug := range []string{"Iron-foods", "iron_foods", "iron foods", "iron.foods"} {
		b := validBundle()
		b["slug"] = slug
		assert.Error(t, Check(b), slug)
	}

	b := validBundle()
	b["slug"] = "0-12m-sleep-2"
	assert.NoError(t, Check(b))
}

func TestCheck_LastReviewedFormat(t *testing.T) {
	for _, date := range []string{"03-01-2024", "2024/03/01", "2024-3-1", "yesterday"} {
		b := validBundle()
		b["last_reviewed"] = date
		assert.Error(t, Check(b), date)
	}
}

func TestCheck_NotAnObject(t *testing.T) {
	assert.Error(t, Check("iron-rich-foods"))
	assert.Error(t, Check(nil))
	assert.Equal(t, "unknown", SlugOf("iron-rich-foods"))
}

func TestValidate_LogsFailedRule(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := New(zap.New(core))

	b := validBundle()
	b["last_reviewed"] = "03-01-2024"
	assert.False(t, v.Validate(b))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "iron-rich-foods", fields["slug"])
	assert.Contains(t, fields["error"], "last_reviewed")
}
