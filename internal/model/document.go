package model

import "time"

// DocumentKind distinguishes indexed companies from indexed leads.
type DocumentKind string

const (
	DocumentCompany DocumentKind = "company"
	DocumentLead    DocumentKind = "lead"
)

// Document is one searchable text rendering of a company or lead.
type Document struct {
	ID         string       `json:"id"`
	Collection string       `json:"collection"`
	Kind       DocumentKind `json:"kind"`
	Company    string       `json:"company"`
	Content    string       `json:"content"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
