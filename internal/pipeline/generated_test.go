package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-research/internal/llm"
	"github.com/sells-group/competitor-research/internal/model"
)

func completerReturning(out string, err error) llm.Completer {
	return llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return out, err
	})
}

func TestGeneratedProfiles_Parses(t *testing.T) {
	out := "Here you go:\n" + `{"name": "Zeta Labs", "industry": "Fintech", "founded": 2015,
		"employees_count": "1,200", "website": "https://zeta.io"}` + "\nHope that helps."

	p, err := NewGeneratedProfiles(completerReturning(out, nil)).FetchProfile(context.Background(), "Zeta")
	require.NoError(t, err)
	assert.Equal(t, "Zeta Labs", p.Name)
	assert.Equal(t, "Fintech", p.Industry)
	assert.Equal(t, "2015", p.Founded)
	assert.Equal(t, 1200, p.EmployeesCount)
	assert.Equal(t, "https://zeta.io", p.Website)
	assert.Equal(t, model.SourceGenerated, p.Source)
}

func TestGeneratedProfiles_MissingNameUsesCompany(t *testing.T) {
	p, err := NewGeneratedProfiles(completerReturning(`{"industry": "Retail"}`, nil)).
		FetchProfile(context.Background(), "Zeta")
	require.NoError(t, err)
	assert.Equal(t, "Zeta", p.Name)
}

func TestGeneratedProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"llm error", "", errors.New("timeout")},
		{"no json", "I do not know this company.", nil},
		{"broken json", `{"name": "Zeta",`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewGeneratedProfiles(completerReturning(tt.out, tt.err)).FetchProfile(context.Background(), "Zeta")
			require.Error(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestProfileRequest(t *testing.T) {
	req := profileRequest("Zeta")
	assert.Equal(t, "profile", req.Phase)
	assert.Contains(t, req.Prompt, `"Zeta"`)
	assert.Equal(t, int64(1000), req.MaxTokens)
}

func TestIntField(t *testing.T) {
	m := map[string]any{"a": 12.0, "b": "3,400", "c": "many", "d": -5.0}
	assert.Equal(t, 12, intField(m, "a"))
	assert.Equal(t, 3400, intField(m, "b"))
	assert.Equal(t, 0, intField(m, "c"))
	assert.Equal(t, 0, intField(m, "d"))
	assert.Equal(t, 0, intField(m, "missing"))
}
