// Package database stores the run history of automation sessions in SQLite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

// FileName is the history database inside the base directory
const FileName = "history.db"

// DB wraps the SQLite database connection
type DB struct {
	conn   *sql.DB
	path   string
	logger *logging.Logger
}

// Open opens or creates a SQLite database at the specified path
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	return &DB{conn: conn, path: dbPath, logger: logging.Nop()}, nil
}

// OpenAndMigrate opens the database and applies pending migrations
func OpenAndMigrate(dbPath string, logger *logging.Logger) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		db.logger = logger
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// ExecTx runs fn in a transaction, rolling back when it fails
func (db *DB) ExecTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration
func (db *DB) SchemaVersion() (int, error) {
	return db.getCurrentVersion()
}

// Totals returns the number of stored sessions and rounds
func (db *DB) Totals(ctx context.Context) (sessions, rounds int64, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM sessions), (SELECT COUNT(*) FROM rounds)
	`).Scan(&sessions, &rounds)
	return sessions, rounds, err
}
