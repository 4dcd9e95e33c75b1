// Package validate holds the structural rules a content bundle must pass
// before it is handed to the content store.
package validate

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	MinOneLiner = 50
	MaxOneLiner = 200
	MinKeyFacts = 3
	MaxKeyFacts = 8
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// RequiredFields must be present and truthy on every bundle.
var RequiredFields = []string{"slug", "type", "hub", "title", "one_liner", "key_facts", "last_reviewed"}

// RuleError names the first rule a bundle failed.
type RuleError struct {
	Field string
	Rule  string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Rule)
}

// Validator logs the failing rule to the operator log. It never touches a store.
type Validator struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate reports whether raw satisfies every bundle rule.
func (v *Validator) Validate(raw any) bool {
	if err := Check(raw); err != nil {
		v.logger.Warn("bundle failed validation",
			zap.String("slug", SlugOf(raw)),
			zap.Error(err))
		return false
	}
	return true
}

// Check returns the first rule raw violates, or nil.
func Check(raw any) error {
	fields, ok := raw.(map[string]any)
	if !ok {
		return &RuleError{Field: "bundle", Rule: "must be an object"}
	}

	for _, name := range RequiredFields {
		if !truthy(fields[name]) {
			return &RuleError{Field: name, Rule: "required"}
		}
	}

	slug, ok := fields["slug"].(string)
	if !ok || !slugPattern.MatchString(slug) {
		return &RuleError{Field: "slug", Rule: "must match ^[a-z0-9-]+$"}
	}

	oneLiner, ok := fields["one_liner"].(string)
	if !ok {
		return &RuleError{Field: "one_liner", Rule: "must be a string"}
	}
	if n := utf8.RuneCountInString(oneLiner); n < MinOneLiner || n > MaxOneLiner {
		return &RuleError{Field: "one_liner", Rule: fmt.Sprintf("length %d outside [%d, %d]", n, MinOneLiner, MaxOneLiner)}
	}

	facts, ok := fields["key_facts"].([]any)
	if !ok {
		return &RuleError{Field: "key_facts", Rule: "must be an array"}
	}
	if n := len(facts); n < MinKeyFacts || n > MaxKeyFacts {
		return &RuleError{Field: "key_facts", Rule: fmt.Sprintf("%d entries outside [%d, %d]", n, MinKeyFacts, MaxKeyFacts)}
	}

	reviewed, ok := fields["last_reviewed"].(string)
	if !ok || !datePattern.MatchString(reviewed) {
		return &RuleError{Field: "last_reviewed", Rule: "must be YYYY-MM-DD"}
	}

	return nil
}

// SlugOf returns the bundle slug for reporting, or "unknown".
func SlugOf(raw any) string {
	if fields, ok := raw.(map[string]any); ok {
		if s, ok := fields["slug"].(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}
