package pipeline

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/internal/llm"
	"github.com/sells-group/competitor-research/internal/metrics"
	"github.com/sells-group/competitor-research/internal/model"
)

// GeneratedProfiles reconstructs a profile from the generative model using
// only the company name as context.
type GeneratedProfiles struct {
	llm llm.Completer
}

// NewGeneratedProfiles creates a generative ProfileSource.
func NewGeneratedProfiles(completer llm.Completer) *GeneratedProfiles {
	return &GeneratedProfiles{llm: completer}
}

func (g *GeneratedProfiles) Name() string { return string(model.SourceGenerated) }

func (g *GeneratedProfiles) FetchProfile(ctx context.Context, company string) (*model.CompanyProfile, error) {
	out, err := g.llm.Complete(ctx, profileRequest(company))
	metrics.LLMCalls.WithLabelValues("profile", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := llm.ExtractJSONObject(out, &fields); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse generated profile for %s", company)
	}

	p := &model.CompanyProfile{
		Name:           firstNonEmpty(stringField(fields, "name"), company),
		Domain:         stringField(fields, "domain"),
		Description:    stringField(fields, "description"),
		Industry:       stringField(fields, "industry"),
		Size:           stringField(fields, "size"),
		Location:       stringField(fields, "location"),
		Founded:        stringField(fields, "founded"),
		Funding:        stringField(fields, "funding"),
		EmployeesCount: intField(fields, "employees_count"),
		LinkedInURL:    stringField(fields, "linkedin_url"),
		Website:        stringField(fields, "website"),
		Source:         model.SourceGenerated,
		CreatedAt:      time.Now().UTC(),
	}
	return p, nil
}

func profileRequest(company string) llm.Request {
	return llm.Request{
		Phase: "profile",
		Prompt: fmt.Sprintf(`Provide information about the company %q as a JSON object with these fields:
- name: company name
- domain: website domain
- description: brief company description
- industry: primary industry
- size: company size, e.g. "50-100 employees"
- location: headquarters location
- founded: founding year
- funding: funding information if known
- employees_count: estimated number of employees (integer)
- linkedin_url: LinkedIn company page URL
- website: company website URL

Return only valid JSON.`, company),
		MaxTokens:   1000,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
	}
}

// stringField reads a loosely typed JSON value as text. Models often emit
// years and counts as numbers.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		if v < 0 || v > math.MaxInt32 {
			return 0
		}
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(v), ",", ""))
		if err != nil || n < 0 {
			return 0
		}
		return n
	default:
		return 0
	}
}

// StubProfiles is the last profile source: it always produces a minimal
// profile so a workflow never proceeds without one.
type StubProfiles struct{}

func (StubProfiles) Name() string { return string(model.SourceStub) }

func (StubProfiles) FetchProfile(_ context.Context, company string) (*model.CompanyProfile, error) {
	return &model.CompanyProfile{
		Name:        company,
		Description: "AI-generated profile for " + company,
		Industry:    "Technology",
		Source:      model.SourceStub,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
