// Package database centralises sqlx connection helpers for the SQL
// authenticate backend.  The driver is go-sql-driver/mysql, which also works
// with MariaDB and TiDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                          – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, maxOpen, maxIdle) – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB on
// shutdown.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const (
	defaultMaxOpen = 15
	defaultMaxIdle = 5
	connLifetime   = 30 * time.Minute
)

// Open returns a *sqlx.DB with 15 max open, 5 idle, and a 30-minute
// connection lifetime.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, defaultMaxOpen, defaultMaxIdle)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.  Zero values fall
// back to the Open defaults.
func OpenWithOptions(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpen
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// normalizeDSN parses dsn and forces parseTime so DATETIME columns scan
// into time.Time.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("database: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
