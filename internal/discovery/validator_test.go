package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Check(t *testing.T) {
	v := DefaultValidator()

	tests := []struct {
		name      string
		candidate string
		seed      string
		want      string
	}{
		{"real company", "Beta Corp", "Acme", ""},
		{"word containing test", "Testa Motors", "Acme", ""},
		{"word containing sample", "Samplex Analytics", "Acme", ""},
		{"empty", "", "Acme", ReasonTooShort},
		{"single char", " X ", "Acme", ReasonTooShort},
		{"seed exact", "Acme", "Acme", ReasonSeedCompany},
		{"seed different case", "  ACME ", "acme", ReasonSeedCompany},
		{"numbered generic", "Company Name 2", "Acme", ReasonPattern},
		{"lettered generic", "Competitor B", "Acme", ReasonPattern},
		{"example company", "Example Company Ltd", "Acme", ReasonPattern},
		{"placeholder prefix", "Placeholder Inc", "Acme", ReasonPattern},
		{"name ending in number", "Widget Maker 3", "Acme", ReasonPattern},
		{"too long", strings.Repeat("a", 101), "Acme", ReasonTooLong},
		{"seven words", "One Two Three Four Five Six Seven", "Acme", ReasonTooManyWords},
		{"six words ok", "One Two Three Four Five Six", "Acme", ""},
		{"placeholder word", "Sample Analytics", "Acme", ReasonPlaceholderWord},
		{"mock word", "Acme Mock Services", "Beta", ReasonPlaceholderWord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Check(tt.candidate, tt.seed))
			assert.Equal(t, tt.want == "", v.Valid(tt.candidate, tt.seed))
		})
	}
}

func TestNewValidator_BadPattern(t *testing.T) {
	_, err := NewValidator(Rules{Patterns: []string{"("}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery: compile pattern")
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
validator:
  max_words: 3
  patterns: []
  placeholder_words: ["lorem"]
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 3, rules.MaxWords)
	assert.Equal(t, 100, rules.MaxLength)
	assert.Equal(t, 2, rules.MinLength)
	assert.Empty(t, rules.Patterns)
	assert.Equal(t, []string{"lorem"}, rules.PlaceholderWords)

	v, err := NewValidator(rules)
	require.NoError(t, err)
	assert.Equal(t, "", v.Check("Company Name 2", "Acme"))
	assert.Equal(t, ReasonTooManyWords, v.Check("One Two Three Four", "Acme"))
	assert.Equal(t, ReasonPlaceholderWord, v.Check("Lorem Ipsum", "Acme"))
	assert.Equal(t, "", v.Check("Sample Analytics", "Acme"))
}

func TestLoadRules_Errors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery: read rules")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validator: [unclosed"), 0o644))
	_, err = LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery: parse rules")
}
