package model

import "time"

// ProfileSource identifies which acquisition strategy produced a profile or lead.
type ProfileSource string

const (
	SourceApollo    ProfileSource = "apollo"
	SourceGenerated ProfileSource = "generated"
	SourceStub      ProfileSource = "stub"
	SourceSynthetic ProfileSource = "synthetic"
)

// CompanyProfile is the researched description of a single company.
// Name is the storage key: profiles are upserted by name.
type CompanyProfile struct {
	Name           string        `json:"name"`
	Domain         string        `json:"domain,omitempty"`
	Description    string        `json:"description,omitempty"`
	Industry       string        `json:"industry,omitempty"`
	Size           string        `json:"size,omitempty"`
	Location       string        `json:"location,omitempty"`
	Founded        string        `json:"founded,omitempty"`
	Funding        string        `json:"funding,omitempty"`
	EmployeesCount int           `json:"employees_count,omitempty"`
	LinkedInURL    string        `json:"linkedin_url,omitempty"`
	Website        string        `json:"website,omitempty"`
	Source         ProfileSource `json:"source,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// LeadProfile is a single contact at a researched company.
// Leads are upserted by (Name, Company).
type LeadProfile struct {
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Company     string        `json:"company"`
	Email       string        `json:"email,omitempty"`
	LinkedInURL string        `json:"linkedin_url,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Location    string        `json:"location,omitempty"`
	Department  string        `json:"department,omitempty"`
	Seniority   string        `json:"seniority,omitempty"`
	Source      ProfileSource `json:"source,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
