package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/internal/db"
	"github.com/sells-group/competitor-research/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
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
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name_key, company_key)
);

CREATE INDEX IF NOT EXISTS idx_leads_company_key ON leads(company_key);

CREATE TABLE IF NOT EXISTS task_status (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	company    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL,
	progress   INTEGER NOT NULL DEFAULT 0,
	message    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_task_status_status ON task_status(status);
CREATE INDEX IF NOT EXISTS idx_task_status_session ON task_status(session_id);

CREATE TABLE IF NOT EXISTS index_documents (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	kind       TEXT NOT NULL,
	company    TEXT NOT NULL,
	content    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_index_documents_collection ON index_documents(collection);
`

// Ping checks connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveCompany(ctx context.Context, p *model.CompanyProfile) error {
	if p == nil || model.FoldName(p.Name) == "" {
		return eris.New("postgres: save company: name required")
	}
	now := time.Now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO companies (name_key, name, domain, description, industry, size, location, founded,
			funding, employees_count, linkedin_url, website, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (name_key) DO UPDATE SET
			name = EXCLUDED.name, domain = EXCLUDED.domain, description = EXCLUDED.description,
			industry = EXCLUDED.industry, size = EXCLUDED.size, location = EXCLUDED.location,
			founded = EXCLUDED.founded, funding = EXCLUDED.funding,
			employees_count = EXCLUDED.employees_count, linkedin_url = EXCLUDED.linkedin_url,
			website = EXCLUDED.website, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`,
		model.FoldName(p.Name), p.Name, p.Domain, p.Description, p.Industry, p.Size, p.Location,
		p.Founded, p.Funding, p.EmployeesCount, p.LinkedInURL, p.Website, string(p.Source), created, now,
	)
	return eris.Wrapf(err, "postgres: save company %s", p.Name)
}

func (s *PostgresStore) GetCompany(ctx context.Context, name string) (*model.CompanyProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE name_key = $1`, model.FoldName(name))
	p, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", name)
	}
	return p, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.CompanyProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name_key`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.CompanyProfile
	for rows.Next() {
		p, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

var leadUpsert = db.UpsertConfig{
	Table: "leads",
	Columns: []string{
		"name_key", "company_key", "name", "company", "title", "email", "linkedin_url", "phone",
		"location", "department", "seniority", "source", "created_at", "updated_at",
	},
	ConflictKeys: []string{"name_key", "company_key"},
	UpdateCols: []string{
		"name", "company", "title", "email", "linkedin_url", "phone",
		"location", "department", "seniority", "source", "updated_at",
	},
}

// SaveLeads bulk upserts leads through a COPY into a temp table.
func (s *PostgresStore) SaveLeads(ctx context.Context, leads []model.LeadProfile) (int, error) {
	leads = dedupeLeads(leads)
	if len(leads) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(leads))
	for i, l := range leads {
		created := l.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows[i] = []any{
			model.FoldName(l.Name), model.FoldName(l.Company), l.Name, l.Company, l.Title, l.Email,
			l.LinkedInURL, l.Phone, l.Location, l.Department, l.Seniority, string(l.Source), created, now,
		}
	}

	n, err := db.BulkUpsert(ctx, s.pool, leadUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save leads")
	}
	return int(n), nil
}

func (s *PostgresStore) GetLeadsByCompany(ctx context.Context, company string) ([]model.LeadProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE company_key = $1 ORDER BY name_key`, model.FoldName(company))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get leads for %s", company)
	}
	defer rows.Close()

	out := []model.LeadProfile{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: get leads iterate")
}

func (s *PostgresStore) LeadCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT company_key, COUNT(*)::int FROM leads GROUP BY company_key`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead counts")
	}
	defer rows.Close()
	return scanCounts(rows)
}

func (s *PostgresStore) UpsertTaskStatus(ctx context.Context, t model.Task) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO task_status (id, session_id, company, kind, status, progress, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, progress = EXCLUDED.progress,
			message = EXCLUDED.message, updated_at = EXCLUDED.updated_at`,
		t.ID, t.SessionID, t.CompanyName, string(t.Kind), string(t.Status), t.Progress, t.Message,
		t.CreatedAt.UTC(), updatedAt(t),
	)
	return eris.Wrapf(err, "postgres: upsert task status %s", t.ID)
}

func (s *PostgresStore) ListTaskStatuses(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, session_id, company, kind, status, progress, message, created_at, updated_at
		FROM task_status WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.SessionID != "" {
		query += fmt.Sprintf(` AND session_id = $%d`, argIdx)
		args = append(args, filter.SessionID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list task statuses")
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan task status")
		}
		out = append(out, *t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list task statuses iterate")
}

func (s *PostgresStore) UpsertDocument(ctx context.Context, doc model.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO index_documents (id, collection, kind, company, content, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			collection = EXCLUDED.collection, kind = EXCLUDED.kind, company = EXCLUDED.company,
			content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.Collection, string(doc.Kind), doc.Company, doc.Content,
	)
	return eris.Wrapf(err, "postgres: upsert document %s", doc.ID)
}

func (s *PostgresStore) CountDocuments(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM index_documents WHERE collection = $1`, collection).Scan(&n)
	return n, eris.Wrap(err, "postgres: count documents")
}

func (s *PostgresStore) SearchDocuments(ctx context.Context, collection, query string, limit int) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, collection, kind, company, content, updated_at FROM index_documents
		WHERE collection = $1 AND content ILIKE '%' || $2 || '%'
		ORDER BY kind, id LIMIT $3`,
		collection, query, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search documents")
	}
	defer rows.Close()

	out := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Collection, &d.Kind, &d.Company, &d.Content, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search documents iterate")
}
