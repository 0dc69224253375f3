package database

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens driver ("pgx" or "sqlite3") and applies the schema.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		// single writer; also keeps ":memory:" databases on one connection
		db.SetMaxOpenConns(1)
	}
	if err := Migrate(db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

// Migrate runs each ;-separated statement of schema.
func Migrate(db *sqlx.DB, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemas = map[string]string{
	"pgx":     postgresSchema,
	"sqlite3": sqliteSchema,
}

const commonTables = `
CREATE TABLE IF NOT EXISTS machines (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    energy_source TEXT NOT NULL,
    rated_power_kw DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS baseline_models (
    id TEXT PRIMARY KEY,
    entity_id TEXT NOT NULL,
    energy_source TEXT NOT NULL,
    version INTEGER NOT NULL,
    r_squared DOUBLE PRECISION NOT NULL,
    sample_count INTEGER NOT NULL,
    trained_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL,
    UNIQUE (entity_id, energy_source, version)
);

CREATE TABLE IF NOT EXISTS action_plans (
    id TEXT PRIMARY KEY,
    entity_name TEXT NOT NULL,
    issue_type TEXT NOT NULL,
    status TEXT NOT NULL,
    generated_on TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);
`

const postgresSchema = commonTables + `
CREATE TABLE IF NOT EXISTS readings (
    id BIGSERIAL PRIMARY KEY,
    entity_id TEXT NOT NULL,
    energy_source TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    power_kw DOUBLE PRECISION NOT NULL,
    energy_kwh DOUBLE PRECISION NOT NULL,
    drivers TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS readings_series_idx ON readings (entity_id, energy_source, timestamp);
`

const sqliteSchema = commonTables + `
CREATE TABLE IF NOT EXISTS readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id TEXT NOT NULL,
    energy_source TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    power_kw REAL NOT NULL,
    energy_kwh REAL NOT NULL,
    drivers TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS readings_series_idx ON readings (entity_id, energy_source, timestamp);
`
