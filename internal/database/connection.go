package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database.
// driver is "sqlite3" or "postgres"; dsn is a file path for sqlite and a
// connection string for postgres.
func Connect(driver, dsn string) error {
	switch driver {
	case "sqlite3":
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %v", err)
			}
		}

		db, err := sqlx.Connect("sqlite3", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}

		// Enable foreign keys
		_, err = db.Exec("PRAGMA foreign_keys = ON")
		if err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}

		// Set connection pool settings
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)

		DB = db
	case "postgres":
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		DB = db
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	// Initialize schema
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

func isPostgres() bool {
	return DB != nil && DB.DriverName() == "postgres"
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres() {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	// Create users table
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id ` + idColumn + `,
			username TEXT NOT NULL UNIQUE,
			simulated BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	// Create items table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id ` + idColumn + `,
			user_id BIGINT NOT NULL,
			prompt TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			difficulty_rating DOUBLE PRECISION NOT NULL DEFAULT 0.3,
			memory_strength DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			consecutive_correct INTEGER NOT NULL DEFAULT 0,
			total_reviews INTEGER NOT NULL DEFAULT 0,
			last_reviewed_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create items table: %v", err)
	}

	// Create review_events table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS review_events (
			id ` + idColumn + `,
			item_id BIGINT NOT NULL,
			recalled BOOLEAN NOT NULL,
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			interval_used INTEGER NOT NULL,
			algorithm_used TEXT NOT NULL DEFAULT 'baseline',
			ml_interval INTEGER,
			baseline_interval INTEGER,
			reviewed_at TIMESTAMP NOT NULL,
			FOREIGN KEY (item_id) REFERENCES items(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_events table: %v", err)
	}

	// Create backfill_runs table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS backfill_runs (
			id ` + idColumn + `,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			users_processed INTEGER NOT NULL DEFAULT 0,
			items_processed INTEGER NOT NULL DEFAULT 0,
			events_converted INTEGER NOT NULL DEFAULT 0,
			failures INTEGER NOT NULL DEFAULT 0,
			dry_run BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create backfill_runs table: %v", err)
	}

	// History lookups scan by item in review order
	_, err = DB.Exec(`
		CREATE INDEX IF NOT EXISTS idx_review_events_item
		ON review_events(item_id, reviewed_at, id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_events index: %v", err)
	}

	return nil
}
