package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/xordon/callflow/engine"
)

// PGConfig holds the Postgres directory configuration.
type PGConfig struct {
	ConnectionString  string `yaml:"connection_string" validate:"required"`
	MaxOpenConns      int    `yaml:"max_open_conns" default:"10" validate:"gte=1,lte=100"`
	MaxIdleConns      int    `yaml:"max_idle_conns" default:"5" validate:"gte=0,lte=50"`
	ConnMaxLifetimeMs int    `yaml:"conn_max_lifetime_ms" default:"300000" validate:"gte=0"`
}

var (
	_ engine.AgentDirectory   = &PG{}
	_ engine.ContactDirectory = &PG{}
	_ engine.HolidayCalendar  = &PG{}
	_ engine.MediaLibrary     = &PG{}
	_ engine.Tenants          = &PG{}
)

// PG reads agents, contacts, holidays, media, and tenant provider settings
// from the CRM database. All lookups treat missing rows as "no data".
type PG struct {
	db *sql.DB
}

func NewPG(cfg PGConfig) (*PG, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMs) * time.Millisecond)

	return &PG{db: db}, nil
}

func (p *PG) AvailableAgent(ctx context.Context, tenant, agentID string) (*engine.Agent, error) {
	const q = `SELECT id, name, phone, extension, department
		FROM call_agents
		WHERE tenant_id = $1 AND id = $2 AND status = 'available'`

	var a engine.Agent
	err := p.db.QueryRowContext(ctx, q, tenant, agentID).
		Scan(&a.ID, &a.Name, &a.Phone, &a.Extension, &a.Department)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query agent %s: %w", agentID, err)
	}
	a.Status = "available"
	return &a, nil
}

func (p *PG) DepartmentNumbers(ctx context.Context, tenant, department string) ([]string, error) {
	const q = `SELECT phone FROM call_agents
		WHERE tenant_id = $1 AND department = $2 AND status = 'available' AND phone <> ''
		ORDER BY id`

	rows, err := p.db.QueryContext(ctx, q, tenant, department)
	if err != nil {
		return nil, fmt.Errorf("query department %s: %w", department, err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan department number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (p *PG) AvailableCount(ctx context.Context, tenant string) (int, error) {
	const q = `SELECT COUNT(*) FROM call_agents WHERE tenant_id = $1 AND status = 'available'`

	var count int
	if err := p.db.QueryRowContext(ctx, q, tenant).Scan(&count); err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return count, nil
}

func (p *PG) IsVIP(ctx context.Context, tenant, number string) (bool, error) {
	digits := engine.DigitsOnly(number)
	if digits == "" {
		return false, nil
	}

	const q = `SELECT is_vip FROM contacts
		WHERE tenant_id = $1 AND regexp_replace(phone, '\D', '', 'g') LIKE '%' || $2
		LIMIT 1`

	var vip bool
	err := p.db.QueryRowContext(ctx, q, tenant, digits).Scan(&vip)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query vip flag: %w", err)
	}
	return vip, nil
}

func (p *PG) EmailFor(ctx context.Context, tenant, number string) (string, error) {
	digits := engine.DigitsOnly(number)
	if digits == "" {
		return "", nil
	}

	const q = `SELECT COALESCE(email, '') FROM contacts
		WHERE tenant_id = $1 AND regexp_replace(phone, '\D', '', 'g') LIKE '%' || $2
		LIMIT 1`

	var email string
	err := p.db.QueryRowContext(ctx, q, tenant, digits).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query contact email: %w", err)
	}
	return email, nil
}

func (p *PG) IsHoliday(ctx context.Context, tenant string, day time.Time) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM holidays
		WHERE tenant_id = $1
		AND (date = $2::date OR (is_recurring AND to_char(date, 'MM-DD') = $3))
	)`

	var holiday bool
	err := p.db.QueryRowContext(ctx, q, tenant, day.Format("2006-01-02"), day.Format("01-02")).
		Scan(&holiday)
	if err != nil {
		return false, fmt.Errorf("query holidays: %w", err)
	}
	return holiday, nil
}

func (p *PG) MediaURL(ctx context.Context, tenant, mediaID string) (string, error) {
	const q = `SELECT url FROM media_files WHERE tenant_id = $1 AND id = $2`

	var url string
	err := p.db.QueryRowContext(ctx, q, tenant, mediaID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query media %s: %w", mediaID, err)
	}
	return url, nil
}

func (p *PG) Provider(ctx context.Context, tenant string) (string, error) {
	const q = `SELECT COALESCE(telephony_provider, '') FROM tenants WHERE id = $1`

	var provider string
	err := p.db.QueryRowContext(ctx, q, tenant).Scan(&provider)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query tenant provider: %w", err)
	}
	return provider, nil
}

// Close releases the underlying connection pool.
func (p *PG) Close() error {
	return p.db.Close()
}
