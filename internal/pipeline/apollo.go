package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/internal/resilience"
	"github.com/sells-group/competitor-research/pkg/apollo"
)

// Breaker names for the two Apollo endpoints.
const (
	ApolloOrganizations = "apollo_organizations"
	ApolloPeople        = "apollo_people"
)

// ApolloProfiles looks companies up in Apollo's organization search.
type ApolloProfiles struct {
	client  apollo.Client
	breaker *resilience.CircuitBreaker
}

// NewApolloProfiles creates an Apollo-backed ProfileSource guarded by the
// ApolloOrganizations breaker.
func NewApolloProfiles(client apollo.Client, breakers *resilience.ServiceBreakers) *ApolloProfiles {
	return &ApolloProfiles{client: client, breaker: breakers.Get(ApolloOrganizations)}
}

func (a *ApolloProfiles) Name() string { return string(model.SourceApollo) }

// FetchProfile returns the best organization match, or nil when Apollo has none.
func (a *ApolloProfiles) FetchProfile(ctx context.Context, company string) (*model.CompanyProfile, error) {
	orgs, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) ([]apollo.Organization, error) {
		return a.client.SearchOrganizations(ctx, company, 1)
	})
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	return organizationProfile(orgs[0], company), nil
}

// ApolloLeads looks up people at a company in Apollo's people search.
type ApolloLeads struct {
	client  apollo.Client
	breaker *resilience.CircuitBreaker
}

// NewApolloLeads creates an Apollo-backed LeadSource guarded by the
// ApolloPeople breaker.
func NewApolloLeads(client apollo.Client, breakers *resilience.ServiceBreakers) *ApolloLeads {
	return &ApolloLeads{client: client, breaker: breakers.Get(ApolloPeople)}
}

func (a *ApolloLeads) Name() string { return string(model.SourceApollo) }

// FetchLeads returns up to limit people. Apollo caps the page at
// apollo.MaxPerPage.
func (a *ApolloLeads) FetchLeads(ctx context.Context, company string, limit int) ([]model.LeadProfile, error) {
	people, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) ([]apollo.Person, error) {
		return a.client.SearchPeople(ctx, company, min(limit, apollo.MaxPerPage))
	})
	if err != nil {
		return nil, err
	}
	leads := make([]model.LeadProfile, 0, len(people))
	for _, p := range people {
		if l, ok := personLead(p, company); ok {
			leads = append(leads, l)
		}
	}
	return leads, nil
}

func organizationProfile(o apollo.Organization, company string) *model.CompanyProfile {
	p := &model.CompanyProfile{
		Name:        firstNonEmpty(o.Name, company),
		Domain:      firstNonEmpty(o.PrimaryDomain, o.WebsiteURL),
		Description: o.ShortDescription,
		Industry:    o.Industry,
		Location:    joinLocation(o.City, o.State, o.Country),
		Funding:     o.TotalFundingPrinted,
		LinkedInURL: o.LinkedInURL,
		Website:     o.WebsiteURL,
		Source:      model.SourceApollo,
		CreatedAt:   time.Now().UTC(),
	}
	if o.EstimatedNumEmployees != nil {
		p.EmployeesCount = *o.EstimatedNumEmployees
		p.Size = fmt.Sprintf("%d employees", *o.EstimatedNumEmployees)
	}
	if o.FoundedYear != nil {
		p.Founded = strconv.Itoa(*o.FoundedYear)
	}
	if p.Funding == "" && o.TotalFunding != nil {
		p.Funding = strconv.FormatFloat(*o.TotalFunding, 'f', 0, 64)
	}
	return p
}

// personLead converts an Apollo person. The lead's company is always the
// researched company so leads group with their profile.
func personLead(p apollo.Person, company string) (model.LeadProfile, bool) {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		name = strings.TrimSpace(p.Name)
	}
	if name == "" {
		return model.LeadProfile{}, false
	}
	var dept string
	if len(p.Departments) > 0 {
		dept = p.Departments[0]
	}
	return model.LeadProfile{
		Name:        name,
		Title:       p.Title,
		Company:     company,
		Email:       p.Email,
		LinkedInURL: p.LinkedInURL,
		Phone:       p.PrimaryPhone(),
		Location:    joinLocation(p.City, p.State, p.Country),
		Department:  dept,
		Seniority:   p.Seniority,
		Source:      model.SourceApollo,
		CreatedAt:   time.Now().UTC(),
	}, true
}

// joinLocation joins the non-empty parts with ", ".
func joinLocation(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
