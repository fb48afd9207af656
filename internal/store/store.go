// ABOUTME: Core SQLite store for the dic server.
// ABOUTME: Handles database initialization, migrations, and connection management for saved schemas and request logs.

package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Migration version constants
const (
	MigrationV1 = 1 // request_logs table
	MigrationV2 = 2 // composite indexes for log filtering
	MigrationV3 = 3 // saved schemas table
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV3

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, logger: logger.Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Version reports the applied migration version.
func (s *Store) Version() (int, error) {
	return s.getCurrentMigrationVersion()
}

type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     MigrationV1,
		description: "Create request_logs table and indexes",
		statements: []string{`
		CREATE TABLE IF NOT EXISTS request_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			area TEXT DEFAULT '',
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status_code INTEGER,
			duration_ms INTEGER,
			session_id TEXT,
			ip_address TEXT,
			user_agent TEXT,
			request_body TEXT,
			response_body TEXT,
			error TEXT
		)`,
			"CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_path ON request_logs(path)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs(status_code)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_area ON request_logs(area)",
		},
	},
	{
		version:     MigrationV2,
		description: "Add composite indexes for aggregation and filtering queries",
		statements: []string{
			// GetTopEndpoints groups by path
			"CREATE INDEX IF NOT EXISTS idx_request_logs_path_count ON request_logs(path, status_code)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_area_method_status ON request_logs(area, method, status_code)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_session_id ON request_logs(session_id) WHERE session_id != ''",
		},
	},
	{
		version:     MigrationV3,
		description: "Create schemas table",
		statements: []string{`
		CREATE TABLE IF NOT EXISTS schemas (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			document TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
			"CREATE INDEX IF NOT EXISTS idx_schemas_created_at ON schemas(created_at DESC)",
			"CREATE INDEX IF NOT EXISTS idx_schemas_name ON schemas(name)",
		},
	},
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	s.logger.Debug("database schema version",
		zap.Int("current", currentVersion),
		zap.Int("target", CurrentSchemaVersion))

	for _, m := range migrations {
		if currentVersion >= m.version {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		s.logger.Info("applied migration", zap.Int("version", m.version), zap.String("description", m.description))
	}

	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, m.version, m.description); err != nil {
		return err
	}
	return tx.Commit()
}

// createMigrationsTable creates the schema_migrations tracking table
func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

// getCurrentMigrationVersion retrieves the current schema version
func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
