package discovery

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/internal/model"
)

// Validator rejection reason codes.
const (
	ReasonTooShort        = "too_short"
	ReasonSeedCompany     = "seed_company"
	ReasonPattern         = "placeholder_pattern"
	ReasonPlaceholderWord = "placeholder_word"
	ReasonTooLong         = "too_long"
	ReasonTooManyWords    = "too_many_words"
)

// Validator decides whether a raw generated name looks like a real company.
// It is safe for concurrent use.
type Validator struct {
	rules    Rules
	patterns []*regexp.Regexp
	words    []*regexp.Regexp
}

// NewValidator compiles rules. Zero-valued limits take their defaults.
func NewValidator(rules Rules) (*Validator, error) {
	rules = rules.withDefaults()
	v := &Validator{rules: rules}
	for _, p := range rules.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "discovery: compile pattern %q", p)
		}
		v.patterns = append(v.patterns, re)
	}
	for _, w := range rules.PlaceholderWords {
		v.words = append(v.words, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToLower(w))+`\b`))
	}
	return v, nil
}

// DefaultValidator returns a validator over DefaultRules.
func DefaultValidator() *Validator {
	v, err := NewValidator(DefaultRules())
	if err != nil {
		panic(err)
	}
	return v
}

// Check returns "" when name is acceptable as a competitor of seed, or the
// reason code for rejecting it.
func (v *Validator) Check(name, seed string) string {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) < v.rules.MinLength {
		return ReasonTooShort
	}
	if model.SameName(trimmed, seed) {
		return ReasonSeedCompany
	}

	lower := strings.ToLower(trimmed)
	for _, re := range v.patterns {
		if re.MatchString(lower) {
			return ReasonPattern
		}
	}
	if utf8.RuneCountInString(trimmed) > v.rules.MaxLength {
		return ReasonTooLong
	}
	if len(strings.Fields(trimmed)) > v.rules.MaxWords {
		return ReasonTooManyWords
	}
	for _, re := range v.words {
		if re.MatchString(lower) {
			return ReasonPlaceholderWord
		}
	}
	return ""
}

// Valid reports whether name passes every rule.
func (v *Validator) Valid(name, seed string) bool {
	return v.Check(name, seed) == ""
}
