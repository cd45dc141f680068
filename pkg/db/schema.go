package db

import (
	"database/sql"
	"fmt"
)

// Decimal values are stored as TEXT so they round-trip exactly; NULL marks a
// field that did not apply to the cycle (e.g. no trade executed).
const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS cycle_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts DATETIME NOT NULL,
    action TEXT NOT NULL,
    symbol TEXT NOT NULL,
    exec_price TEXT,
    exec_qty TEXT,
    quote_cost TEXT,
    ai_signal TEXT,
    ai_reply TEXT,
    has_position INTEGER NOT NULL DEFAULT 0,
    entry_price TEXT,
    base_balance TEXT,
    quote_balance TEXT,
    realized_pnl TEXT,
    open_order_id TEXT,
    notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_cycle_log_ts ON cycle_log(ts);
`

// ApplyMigrations bootstraps the schema; keep lightweight for fast startup.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Idempotent migrations for DB files created before these columns existed.
	if err := ensureColumn(d.DB, "cycle_log", "ai_reply", "TEXT"); err != nil {
		return err
	}
	if err := ensureColumn(d.DB, "cycle_log", "realized_pnl", "TEXT"); err != nil {
		return err
	}
	return nil
}

// ensureColumn adds a column if it does not already exist.
func ensureColumn(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := db.Exec(alter); err != nil {
		return fmt.Errorf("alter table %s add column %s: %w", table, column, err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
