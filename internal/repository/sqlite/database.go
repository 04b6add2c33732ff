package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Database wraps the SQL database connection
type Database struct {
	db *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer; sweeps and handlers share one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{db: db}

	if err := database.applyPragmas(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := database.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying database connection
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// Ping checks that the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := d.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// initSchema creates the database tables
func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		group_id INTEGER NOT NULL,
		registered INTEGER NOT NULL DEFAULT 0,
		restricted INTEGER NOT NULL DEFAULT 1,
		consecutive_absence INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		limit_extension INTEGER NOT NULL DEFAULT 0,
		joined_at DATETIME NOT NULL,
		declaration_accepted_at DATETIME,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_records (
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		has_target INTEGER NOT NULL DEFAULT 0,
		is_day_off INTEGER NOT NULL DEFAULT 0,
		marked_absent INTEGER NOT NULL DEFAULT 0,
		absent_reason TEXT NOT NULL DEFAULT '',
		message_count INTEGER NOT NULL DEFAULT 0,
		message_limit INTEGER,
		PRIMARY KEY (user_id, day),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS reminders (
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		kind INTEGER NOT NULL,
		sent_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, day, kind),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS targets (
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		text TEXT NOT NULL,
		attachment TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME,
		PRIMARY KEY (user_id, day),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS dayoffs (
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, day),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS group_settings (
		group_id INTEGER PRIMARY KEY,
		daily_message_limit INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_group_registered ON users(group_id, registered);
	CREATE INDEX IF NOT EXISTS idx_targets_status_day ON targets(status, day);
	CREATE INDEX IF NOT EXISTS idx_daily_records_day ON daily_records(day);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return err
	}

	return d.addColumn("targets", "progress", "INTEGER NOT NULL DEFAULT 0")
}

// addColumn adds a column to tables created before it existed
func (d *Database) addColumn(table, column, definition string) error {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}

	if _, err := d.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

// Helper functions
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
