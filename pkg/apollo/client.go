package apollo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.apollo.io/v1"

	// MaxPerPage is the largest page size the search endpoints accept.
	MaxPerPage = 25
)

// Client searches Apollo's organization and people databases.
type Client interface {
	SearchOrganizations(ctx context.Context, name string, perPage int) ([]Organization, error)
	SearchPeople(ctx context.Context, organization string, perPage int) ([]Person, error)
}

// Organization is a company record from /mixed_companies/search.
type Organization struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	WebsiteURL            string   `json:"website_url"`
	PrimaryDomain         string   `json:"primary_domain"`
	ShortDescription      string   `json:"short_description"`
	Industry              string   `json:"industry"`
	EstimatedNumEmployees *int     `json:"estimated_num_employees"`
	City                  string   `json:"city"`
	State                 string   `json:"state"`
	Country               string   `json:"country"`
	FoundedYear           *int     `json:"founded_year"`
	TotalFunding          *float64 `json:"total_funding"`
	TotalFundingPrinted   string   `json:"total_funding_printed"`
	LinkedInURL           string   `json:"linkedin_url"`
}

// Person is a contact record from /mixed_people/search.
type Person struct {
	ID           string        `json:"id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Name         string        `json:"name"`
	Title        string        `json:"title"`
	Email        string        `json:"email"`
	LinkedInURL  string        `json:"linkedin_url"`
	Phone        string        `json:"phone"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	Country      string        `json:"country"`
	Departments  []string      `json:"departments"`
	Seniority    string        `json:"seniority"`
}

// PhoneNumber is one entry of a person's phone_numbers list.
type PhoneNumber struct {
	RawNumber       string `json:"raw_number"`
	SanitizedNumber string `json:"sanitized_number"`
	Type            string `json:"type"`
}

// PrimaryPhone returns the first known phone number for the person.
func (p Person) PrimaryPhone() string {
	if p.Phone != "" {
		return p.Phone
	}
	for _, n := range p.PhoneNumbers {
		if n.SanitizedNumber != "" {
			return n.SanitizedNumber
		}
		if n.RawNumber != "" {
			return n.RawNumber
		}
	}
	return ""
}

type organizationsResponse struct {
	Organizations []Organization `json:"organizations"`
}

type peopleResponse struct {
	People []Person `json:"people"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimiter throttles outgoing requests through lim.
func WithRateLimiter(lim *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = lim
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Apollo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchOrganizations(ctx context.Context, name string, perPage int) ([]Organization, error) {
	var out organizationsResponse
	if err := c.get(ctx, "/mixed_companies/search", name, perPage, &out); err != nil {
		return nil, eris.Wrapf(err, "apollo: search organizations %q", name)
	}
	return out.Organizations, nil
}

func (c *httpClient) SearchPeople(ctx context.Context, organization string, perPage int) ([]Person, error) {
	var out peopleResponse
	if err := c.get(ctx, "/mixed_people/search", organization, perPage, &out); err != nil {
		return nil, eris.Wrapf(err, "apollo: search people at %q", organization)
	}
	return out.People, nil
}

func (c *httpClient) get(ctx context.Context, path, organization string, perPage int, dst any) error {
	if perPage <= 0 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	q := url.Values{}
	q.Set("q_organization_name", organization)
	q.Set("page", "1")
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
