package flow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PGConfig holds the Postgres repository configuration.
type PGConfig struct {
	ConnectionString  string `yaml:"connection_string" validate:"required"`
	MaxOpenConns      int    `yaml:"max_open_conns" default:"10" validate:"gte=1,lte=100"`
	MaxIdleConns      int    `yaml:"max_idle_conns" default:"5" validate:"gte=0,lte=50"`
	ConnMaxLifetimeMs int    `yaml:"conn_max_lifetime_ms" default:"300000" validate:"gte=0"`
}

// PGRepository loads flows from the call_flows table. Nodes and edges are
// stored as the designer's JSON documents.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(cfg PGConfig) (*PGRepository, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMs) * time.Millisecond)

	return &PGRepository{db: db}, nil
}

func (r *PGRepository) GetFlow(ctx context.Context, id string) (*Flow, error) {
	const q = `SELECT id, owner_id, nodes, edges FROM call_flows WHERE id = $1`

	var f Flow
	var nodesJSON, edgesJSON []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(&f.ID, &f.OwnerID, &nodesJSON, &edgesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query flow %s: %w", id, err)
	}

	if err := json.Unmarshal(nodesJSON, &f.Nodes); err != nil {
		return nil, fmt.Errorf("decode nodes for flow %s: %w", id, err)
	}
	if err := json.Unmarshal(edgesJSON, &f.Edges); err != nil {
		return nil, fmt.Errorf("decode edges for flow %s: %w", id, err)
	}

	return &f, nil
}

// Close releases the underlying connection pool.
func (r *PGRepository) Close() error {
	return r.db.Close()
}
