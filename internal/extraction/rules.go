package extraction

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldRule declares how one form field is recognized in OCR text.
// Rules are data, not code: new form vocabularies are supported by
// adding table entries, never by editing match logic.
type FieldRule struct {
	// Field is the snake-case FieldMap key this rule populates.
	Field string

	// Label is an optional case-insensitive alternation of label tokens
	// (e.g. `first\s*name|given\s*name`) expected immediately before the
	// value, separated by a colon or whitespace. An empty Label matches
	// the value by shape alone.
	Label string

	// Value is the character-class-and-length pattern for the captured
	// value substring.
	Value string

	// MinLength is the shortest accepted value; zero means the default
	// of 2 characters.
	MinLength int
}

const defaultMinValueLength = 2

// labelSeparator sits between a label token and its value: a colon,
// whitespace, or nothing at all when OCR swallowed the separator.
const labelSeparator = `[:\s]*`

// compiledRule is a FieldRule compiled into a matcher with a single,
// normalized accessor for the captured value group.
type compiledRule struct {
	field     string
	re        *regexp.Regexp
	minLength int
}

func (r FieldRule) compile() (compiledRule, error) {
	if r.Field == "" {
		return compiledRule{}, fmt.Errorf("field rule with empty field key")
	}
	if r.Value == "" {
		return compiledRule{}, fmt.Errorf("field rule %q has no value pattern", r.Field)
	}

	pattern := `(` + r.Value + `)`
	if r.Label != "" {
		pattern = `(?:` + r.Label + `)` + labelSeparator + pattern
	}

	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return compiledRule{}, fmt.Errorf("field rule %q: %w", r.Field, err)
	}

	minLength := r.MinLength
	if minLength <= 0 {
		minLength = defaultMinValueLength
	}

	return compiledRule{field: r.Field, re: re, minLength: minLength}, nil
}

// findValue scans text for the rule and returns the first captured
// value that is non-empty after trimming and satisfies the length
// constraint. The value group is always submatch 1: label tokens are
// non-capturing, so callers never branch on match shape.
func (r compiledRule) findValue(text string) (string, bool) {
	for _, m := range r.re.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(m[1])
		if len(value) >= r.minLength {
			return value, true
		}
	}
	return "", false
}

func compileRules(rules []FieldRule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr, err := r.compile()
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

// DefaultLabeledRules returns the primary rule table: label-anchored
// patterns for the common intake-form vocabulary. Rules are evaluated
// in order and each key is written at most once by this table.
func DefaultLabeledRules() []FieldRule {
	return []FieldRule{
		{Field: "first_name", Label: `first\s*name|given\s*name`, Value: `[a-zA-Z]{2,20}`},
		{Field: "last_name", Label: `last\s*name|surname|family\s*name`, Value: `[a-zA-Z]{2,20}`},
		{Field: "full_name", Label: `full\s*name|name`, Value: `[a-zA-Z\s]{3,40}`},
		{Field: "email", Value: `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`},
		{Field: "phone", Label: `phone|mobile|tel|call`, Value: `[+]?[\d\s\-()]{10,}`},
		{Field: "address", Label: `address|addr`, Value: `[a-zA-Z0-9\s,.-]{10,80}`},
		{Field: "city", Label: `city`, Value: `[a-zA-Z\s]{2,30}`},
		{Field: "state", Label: `state|province`, Value: `[a-zA-Z\s]{2,20}`},
		{Field: "zip", Label: `zip|postal`, Value: `[a-zA-Z0-9\s\-]{3,10}`},
		{Field: "date_of_birth", Label: `date\s*of\s*birth|dob|birth\s*date`, Value: `\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`},
		{Field: "date", Value: `\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`},
		{Field: "ssn", Label: `ssn|social\s*security`, Value: `\d{3}[-\s]?\d{2}[-\s]?\d{4}`},
		{Field: "id_number", Label: `id|number|no`, Value: `[a-zA-Z0-9]{3,}`},
		{Field: "amount", Label: `amount|total|sum|price|cost|pay`, Value: `\$?\d+\.?\d*`},
		{Field: "company", Label: `company|business|employer|corp|inc|ltd`, Value: `[a-zA-Z\s&.]{3,40}`},
		{Field: "title", Label: `title|position|job`, Value: `[a-zA-Z\s]{3,30}`},
		{Field: "department", Label: `department|dept`, Value: `[a-zA-Z\s]{3,30}`},
	}
}

// DefaultFallbackRules returns the secondary, label-free table: values
// whose shape alone is distinctive enough to find in noisy text. These
// only ever fill gaps left by the labeled table.
func DefaultFallbackRules() []FieldRule {
	return []FieldRule{
		{Field: "email", Value: `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`},
		{Field: "phone", Value: `\b(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`},
		{Field: "amount", Value: `\$\d+(?:\.\d{2})?`},
		{Field: "date", Value: `\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`},
	}
}

// DefaultAdjacencyFields returns the short label tokens recognized by
// the adjacent-block heuristic: when a block contains one of these
// tokens and a colon, the next block in reading order is taken as the
// value.
func DefaultAdjacencyFields() []string {
	return []string{"name", "email", "phone", "address", "date", "company"}
}
