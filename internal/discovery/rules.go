package discovery

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules configures the candidate validator.
type Rules struct {
	MinLength        int      `yaml:"min_length"`
	MaxLength        int      `yaml:"max_length"`
	MaxWords         int      `yaml:"max_words"`
	Patterns         []string `yaml:"patterns"`
	PlaceholderWords []string `yaml:"placeholder_words"`
}

// DefaultRules returns the built-in placeholder and garbage filters.
// Patterns are matched against the lower-cased, trimmed name.
func DefaultRules() Rules {
	return Rules{
		MinLength: 2,
		MaxLength: 100,
		MaxWords:  6,
		Patterns: []string{
			`^company\s+name\s+\d+$`,
			`^competitor\s+[a-c]$`,
			`^example\s+company`,
			`^placeholder`,
			`^dummy`,
			`^test\s+company`,
			`^mock\s+company`,
			`^[a-z\s]+\s\d+$`,
		},
		PlaceholderWords: []string{"placeholder", "example", "dummy", "test", "mock", "sample"},
	}
}

func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if r.MinLength <= 0 {
		r.MinLength = def.MinLength
	}
	if r.MaxLength <= 0 {
		r.MaxLength = def.MaxLength
	}
	if r.MaxWords <= 0 {
		r.MaxWords = def.MaxWords
	}
	if r.Patterns == nil {
		r.Patterns = def.Patterns
	}
	if r.PlaceholderWords == nil {
		r.PlaceholderWords = def.PlaceholderWords
	}
	return r
}

// LoadRules reads validator rules from a YAML file with a top-level
// "validator" key. Omitted fields keep their defaults; an explicit empty list
// disables that rule family.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "discovery: read rules %s", path)
	}

	var wrapper struct {
		Validator Rules `yaml:"validator"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrap(err, "discovery: parse rules")
	}
	return wrapper.Validator.withDefaults(), nil
}
