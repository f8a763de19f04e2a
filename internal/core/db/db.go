// Package db persists engine runs for audit.
//
// SQLite serves local and CI use, PostgreSQL shared deployments. Both are
// reached through sqlx; schema changes ship as embedded, checksummed
// migrations and queries live in named .sql files loaded with dotsql.
package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Pool limits assume a handful of annotator instances sharing one
// PostgreSQL server with the default max_connections of 100.
const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Open connects to the database at dbURL and verifies the connection.
//
//	sqlite://runs.db            relative path
//	sqlite:///var/lib/runs.db   absolute path
//	postgres://user@host/db     or postgresql://
func Open(dbURL string) (*sqlx.DB, error) {
	return OpenContext(context.Background(), dbURL)
}

// OpenContext is Open with a context bounding the initial ping.
func OpenContext(ctx context.Context, dbURL string) (*sqlx.DB, error) {
	driverName, dataSource, err := dataSourceFor(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	if driverName == "sqlite3" {
		// A single writer avoids SQLITE_BUSY on concurrent run inserts
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// dataSourceFor maps a database URL to a driver name and its DSN.
func dataSourceFor(dbURL string) (string, string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "sqlite", "sqlite3":
		// sqlite://file.db keeps the relative name in Host
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return "", "", fmt.Errorf("invalid database URL: sqlite URL has no path")
		}
		return "sqlite3", "file:" + path + "?_foreign_keys=on", nil
	case "postgres", "postgresql":
		return "postgres", dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}
}
