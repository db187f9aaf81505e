// Package index renders companies and leads as text documents and keeps
// them searchable in the store's document table.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/model"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "leads_and_companies"

// DocumentStore is the persistence the index needs. store.Store satisfies it.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc model.Document) error
	CountDocuments(ctx context.Context, collection string) (int, error)
	SearchDocuments(ctx context.Context, collection, query string, limit int) ([]model.Document, error)
}

// Stats describes the index for summaries.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	CollectionName string `json:"collection_name"`
}

// DocumentIndex indexes research results into one collection.
type DocumentIndex struct {
	store      DocumentStore
	collection string
}

// New creates a DocumentIndex. An empty collection uses DefaultCollection.
func New(st DocumentStore, collection string) *DocumentIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	return &DocumentIndex{store: st, collection: collection}
}

// IndexCompany upserts the company document.
func (x *DocumentIndex) IndexCompany(ctx context.Context, p *model.CompanyProfile) error {
	if p == nil {
		return nil
	}
	doc := model.Document{
		ID:         CompanyDocID(p.Name),
		Collection: x.collection,
		Kind:       model.DocumentCompany,
		Company:    p.Name,
		Content:    CompanyText(p),
	}
	return eris.Wrapf(x.store.UpsertDocument(ctx, doc), "index: company %s", p.Name)
}

// IndexLeads upserts one document per lead. Every lead is attempted; the
// returned error joins the individual failures.
func (x *DocumentIndex) IndexLeads(ctx context.Context, leads []model.LeadProfile) error {
	var errs []error
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "index: leads")
		}
		doc := model.Document{
			ID:         LeadDocID(l.Name, l.Company),
			Collection: x.collection,
			Kind:       model.DocumentLead,
			Company:    l.Company,
			Content:    LeadText(l),
		}
		if err := x.store.UpsertDocument(ctx, doc); err != nil {
			errs = append(errs, eris.Wrapf(err, "index: lead %s", l.Name))
		}
	}
	return errors.Join(errs...)
}

// Stats reports the collection size. Failures are logged and reported as
// an empty "unknown" collection.
func (x *DocumentIndex) Stats(ctx context.Context) Stats {
	n, err := x.store.CountDocuments(ctx, x.collection)
	if err != nil {
		zap.L().Warn("index: stats failed", zap.String("collection", x.collection), zap.Error(err))
		return Stats{TotalDocuments: 0, CollectionName: "unknown"}
	}
	return Stats{TotalDocuments: n, CollectionName: x.collection}
}

// Search returns documents containing query, case-insensitively.
func (x *DocumentIndex) Search(ctx context.Context, query string, limit int) ([]model.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Document{}, nil
	}
	docs, err := x.store.SearchDocuments(ctx, x.collection, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "index: search")
	}
	return docs, nil
}

// CompanyDocID is the document id for a company.
func CompanyDocID(name string) string {
	return "company_" + model.Slug(name)
}

// LeadDocID is the document id for a lead at a company.
func LeadDocID(name, company string) string {
	return "lead_" + model.Slug(company) + "_" + model.Slug(name)
}

// CompanyText renders a company as a single searchable sentence list.
func CompanyText(p *model.CompanyProfile) string {
	parts := []string{
		"Company: " + p.Name,
		"Industry: " + or(p.Industry, "Unknown"),
		"Description: " + or(p.Description, "No description available"),
		"Size: " + or(p.Size, "Unknown size"),
		"Location: " + or(p.Location, "Unknown location"),
		"Founded: " + or(p.Founded, "Unknown founding year"),
		"Website: " + or(p.Website, "No website"),
		fmt.Sprintf("Employee Count: %d", p.EmployeesCount),
	}
	if p.Funding != "" {
		parts = append(parts, "Funding: "+p.Funding)
	}
	return strings.Join(parts, ". ")
}

// LeadText renders a lead as a single searchable sentence list.
func LeadText(l model.LeadProfile) string {
	parts := []string{
		"Person: " + l.Name,
		"Title: " + or(l.Title, "Unknown title"),
		"Company: " + l.Company,
		"Department: " + or(l.Department, "Unknown department"),
		"Seniority: " + or(l.Seniority, "Unknown seniority"),
		"Location: " + or(l.Location, "Unknown location"),
	}
	if l.Email != "" {
		parts = append(parts, "Email: "+l.Email)
	}
	if l.Phone != "" {
		parts = append(parts, "Phone: "+l.Phone)
	}
	return strings.Join(parts, ". ")
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
