package callback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PGConfig holds the Postgres callback store configuration.
type PGConfig struct {
	ConnectionString string `yaml:"connection_string" validate:"required"`
	MaxOpenConns     int    `yaml:"max_open_conns" default:"5" validate:"gte=1,lte=100"`
}

// PGStore reads and completes callback requests in the CRM database. The
// engine's callback_request node writes rows through the internal API; the
// sweeper drains them here.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(cfg PGConfig) (*PGStore, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	return &PGStore{db: db}, nil
}

func (p *PGStore) Pending(ctx context.Context) ([]Request, error) {
	const q = `SELECT id, tenant_id, call_sid, number, requested_at
		FROM callback_requests
		WHERE status = 'pending'
		ORDER BY requested_at`

	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query pending callbacks: %w", err)
	}
	defer rows.Close()

	var pending []Request
	for rows.Next() {
		var r Request
		var requestedAt time.Time
		if err := rows.Scan(&r.ID, &r.Tenant, &r.CallSID, &r.Number, &requestedAt); err != nil {
			return nil, fmt.Errorf("scan callback row: %w", err)
		}
		r.RequestedAt = requestedAt
		pending = append(pending, r)
	}
	return pending, rows.Err()
}

func (p *PGStore) MarkDialed(ctx context.Context, id string) error {
	const q = `UPDATE callback_requests SET status = 'dialed', dialed_at = NOW() WHERE id = $1`

	if _, err := p.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("mark callback %s dialed: %w", id, err)
	}
	return nil
}

func (p *PGStore) MarkFailed(ctx context.Context, id string) error {
	const q = `UPDATE callback_requests SET status = 'failed', dialed_at = NOW() WHERE id = $1`

	if _, err := p.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("mark callback %s failed: %w", id, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *PGStore) Close() error {
	return p.db.Close()
}
