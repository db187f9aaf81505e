package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/competitor-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	name_key        TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	domain          TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	size            TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	founded         TEXT NOT NULL DEFAULT '',
	funding         TEXT NOT NULL DEFAULT '',
	employees_count INTEGER NOT NULL DEFAULT 0,
	linkedin_url    TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	name_key     TEXT NOT NULL,
	company_key  TEXT NOT NULL,
	name         TEXT NOT NULL,
	company      TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	department   TEXT NOT NULL DEFAULT '',
	seniority    TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	PRIMARY KEY (name_key, company_key)
);

CREATE TABLE IF NOT EXISTS task_status (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	company    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL,
	progress   INTEGER NOT NULL DEFAULT 0,
	message    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS index_documents (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	kind       TEXT NOT NULL,
	company    TEXT NOT NULL,
	content    TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_company_key ON leads(company_key);
CREATE INDEX IF NOT EXISTS idx_task_status_status ON task_status(status);
CREATE INDEX IF NOT EXISTS idx_task_status_session ON task_status(session_id);
CREATE INDEX IF NOT EXISTS idx_index_documents_collection ON index_documents(collection);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const companyColumns = `name, domain, description, industry, size, location, founded, funding,
	employees_count, linkedin_url, website, source, created_at`

func (s *SQLiteStore) SaveCompany(ctx context.Context, p *model.CompanyProfile) error {
	if p == nil || model.FoldName(p.Name) == "" {
		return eris.New("sqlite: save company: name required")
	}
	now := time.Now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (name_key, name, domain, description, industry, size, location, founded,
			funding, employees_count, linkedin_url, website, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name_key) DO UPDATE SET
			name = excluded.name, domain = excluded.domain, description = excluded.description,
			industry = excluded.industry, size = excluded.size, location = excluded.location,
			founded = excluded.founded, funding = excluded.funding,
			employees_count = excluded.employees_count, linkedin_url = excluded.linkedin_url,
			website = excluded.website, source = excluded.source, updated_at = excluded.updated_at`,
		model.FoldName(p.Name), p.Name, p.Domain, p.Description, p.Industry, p.Size, p.Location,
		p.Founded, p.Funding, p.EmployeesCount, p.LinkedInURL, p.Website, string(p.Source), created, now,
	)
	return eris.Wrapf(err, "sqlite: save company %s", p.Name)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, name string) (*model.CompanyProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE name_key = ?`, model.FoldName(name))
	p, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", name)
	}
	return p, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.CompanyProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name_key`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CompanyProfile
	for rows.Next() {
		p, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) SaveLeads(ctx context.Context, leads []model.LeadProfile) (int, error) {
	leads = dedupeLeads(leads)
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: save leads: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (name_key, company_key, name, company, title, email, linkedin_url, phone,
			location, department, seniority, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name_key, company_key) DO UPDATE SET
			name = excluded.name, company = excluded.company, title = excluded.title,
			email = excluded.email, linkedin_url = excluded.linkedin_url, phone = excluded.phone,
			location = excluded.location, department = excluded.department,
			seniority = excluded.seniority, source = excluded.source, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: save leads: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, l := range leads {
		created := l.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx,
			model.FoldName(l.Name), model.FoldName(l.Company), l.Name, l.Company, l.Title, l.Email,
			l.LinkedInURL, l.Phone, l.Location, l.Department, l.Seniority, string(l.Source), created, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: save lead %s at %s", l.Name, l.Company)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: save leads: commit")
	}
	return len(leads), nil
}

const leadColumns = `name, company, title, email, linkedin_url, phone, location, department,
	seniority, source, created_at`

func (s *SQLiteStore) GetLeadsByCompany(ctx context.Context, company string) ([]model.LeadProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE company_key = ? ORDER BY name_key`, model.FoldName(company))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get leads for %s", company)
	}
	defer rows.Close() //nolint:errcheck

	out := []model.LeadProfile{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get leads iterate")
}

func (s *SQLiteStore) LeadCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT company_key, COUNT(*) FROM leads GROUP BY company_key`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead counts")
	}
	defer rows.Close() //nolint:errcheck
	return scanCounts(rows)
}

func (s *SQLiteStore) UpsertTaskStatus(ctx context.Context, t model.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_status (id, session_id, company, kind, status, progress, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, progress = excluded.progress,
			message = excluded.message, updated_at = excluded.updated_at`,
		t.ID, t.SessionID, t.CompanyName, string(t.Kind), string(t.Status), t.Progress, t.Message,
		t.CreatedAt.UTC(), updatedAt(t),
	)
	return eris.Wrapf(err, "sqlite: upsert task status %s", t.ID)
}

func (s *SQLiteStore) ListTaskStatuses(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, session_id, company, kind, status, progress, message, created_at, updated_at
		FROM task_status WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list task statuses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task status")
		}
		out = append(out, *t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list task statuses iterate")
}

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc model.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_documents (id, collection, kind, company, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			collection = excluded.collection, kind = excluded.kind, company = excluded.company,
			content = excluded.content, updated_at = excluded.updated_at`,
		doc.ID, doc.Collection, string(doc.Kind), doc.Company, doc.Content, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert document %s", doc.ID)
}

func (s *SQLiteStore) CountDocuments(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM index_documents WHERE collection = ?`, collection).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count documents")
}

func (s *SQLiteStore) SearchDocuments(ctx context.Context, collection, query string, limit int) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, kind, company, content, updated_at FROM index_documents
		WHERE collection = ? AND content LIKE '%' || ? || '%'
		ORDER BY kind, id LIMIT ?`,
		collection, query, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search documents")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Collection, &d.Kind, &d.Company, &d.Content, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search documents iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanCompany(row scannable) (*model.CompanyProfile, error) {
	var p model.CompanyProfile
	err := row.Scan(&p.Name, &p.Domain, &p.Description, &p.Industry, &p.Size, &p.Location, &p.Founded,
		&p.Funding, &p.EmployeesCount, &p.LinkedInURL, &p.Website, &p.Source, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanLead(row scannable) (*model.LeadProfile, error) {
	var l model.LeadProfile
	err := row.Scan(&l.Name, &l.Company, &l.Title, &l.Email, &l.LinkedInURL, &l.Phone, &l.Location,
		&l.Department, &l.Seniority, &l.Source, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.SessionID, &t.CompanyName, &t.Kind, &t.Status, &t.Progress, &t.Message,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type countRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCounts(rows countRows) (map[string]int, error) {
	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan lead count")
		}
		counts[key] = n
	}
	return counts, eris.Wrap(rows.Err(), "store: lead counts iterate")
}

func updatedAt(t model.Task) time.Time {
	if t.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return t.UpdatedAt.UTC()
}
