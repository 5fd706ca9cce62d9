package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps all pipeline tables. Safe to run from both
// the api and the worker concurrently.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS extraction_sessions (
	id TEXT PRIMARY KEY,
	documents JSONB NOT NULL DEFAULT '[]',
	config JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	current_pass INT NOT NULL DEFAULT 0,
	progress INT NOT NULL DEFAULT 0,
	status_message TEXT NOT NULL DEFAULT '',
	warning TEXT NOT NULL DEFAULT '',
	metrics JSONB NOT NULL DEFAULT '{}',
	passes JSONB NOT NULL DEFAULT '[]',
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS work_packages (
	id TEXT PRIMARY KEY,
	package_id TEXT NOT NULL,
	session_id TEXT NOT NULL REFERENCES extraction_sessions(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	trade TEXT NOT NULL DEFAULT '',
	classification JSONB NOT NULL DEFAULT '{}',
	item_count INT NOT NULL DEFAULT 0,
	complexity TEXT NOT NULL DEFAULT '',
	key_documents JSONB NOT NULL DEFAULT '[]',
	confidence TEXT NOT NULL DEFAULT 'medium',
	provenance JSONB NOT NULL DEFAULT '{}',
	UNIQUE (session_id, package_id)
);

CREATE TABLE IF NOT EXISTS line_items (
	id TEXT PRIMARY KEY,
	package_id TEXT NOT NULL REFERENCES work_packages(id) ON DELETE CASCADE,
	item_number TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	action TEXT NOT NULL DEFAULT '',
	quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit TEXT NOT NULL DEFAULT '',
	specifications TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	source JSONB NOT NULL DEFAULT '{}',
	order_index INT NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	csi_code TEXT NOT NULL DEFAULT '',
	csi_title TEXT NOT NULL DEFAULT '',
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	corrections JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_line_items_package ON line_items(package_id);

CREATE TABLE IF NOT EXISTS observations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES extraction_sessions(id) ON DELETE CASCADE,
	severity TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	insight TEXT NOT NULL DEFAULT '',
	affected_packages JSONB NOT NULL DEFAULT '[]',
	affected_items JSONB NOT NULL DEFAULT '[]',
	suggested_actions JSONB NOT NULL DEFAULT '[]',
	state TEXT NOT NULL DEFAULT 'pending',
	response TEXT NOT NULL DEFAULT '',
	responder_id TEXT NOT NULL DEFAULT '',
	responded_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	pass INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(session_id);

CREATE TABLE IF NOT EXISTS prediction_records (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	field TEXT NOT NULL,
	predicted_value TEXT NOT NULL DEFAULT '',
	predicted_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	predicted_by_pass INT NOT NULL DEFAULT 0,
	predicted_by_model TEXT NOT NULL DEFAULT '',
	final_value TEXT NOT NULL DEFAULT '',
	final_source TEXT NOT NULL,
	was_correct BOOLEAN NOT NULL,
	context TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prediction_records_session ON prediction_records(session_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return tx.Commit()
}
