package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		name  TEXT    PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS houses (
		id                  INTEGER PRIMARY KEY,
		name                TEXT    NOT NULL,
		code                TEXT    NOT NULL DEFAULT '',
		capacity            INTEGER NOT NULL DEFAULT 10,
		zone                TEXT    NOT NULL DEFAULT '',
		weekday_prices_json TEXT    NOT NULL DEFAULT '{}',
		last_sync_at        DATETIME,
		created_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_houses_code ON houses(code)`,
	`CREATE INDEX IF NOT EXISTS idx_houses_name ON houses(name)`,
	`CREATE TABLE IF NOT EXISTS calendar_days (
		house_id     INTEGER NOT NULL REFERENCES houses(id) ON DELETE CASCADE,
		date         TEXT    NOT NULL,
		price        TEXT,
		status       TEXT    NOT NULL DEFAULT 'available'
		             CHECK (status IN ('available', 'booked', 'closed')),
		is_holiday   INTEGER NOT NULL DEFAULT 0,
		manual       INTEGER NOT NULL DEFAULT 0,
		manual_at    DATETIME,
		source       TEXT    NOT NULL DEFAULT 'unset',
		last_sync_at DATETIME,
		PRIMARY KEY (house_id, date)
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent, checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"houses", "external_code", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
