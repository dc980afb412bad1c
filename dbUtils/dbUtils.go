package dbutils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Opens a database and checks that it is reachable
func Open(ctx context.Context, driver string, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	zlog.Debug().Str("driver", driver).Int("maxOpenConns", maxOpenConns).Msg("Database opened")
	return db, nil
}

// Runs each statement in order, stopping at the first error
func ExecAll(ctx context.Context, db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%q: %w", stmt, err)
		}
	}
	return nil
}

// Vacuums the database, then returns its size in bytes as reported by sizeQuery
func DbSize(ctx context.Context, db *sql.DB, vacuum string, sizeQuery string) (int64, error) {
	if vacuum != "" {
		if err := ExecAll(ctx, db, vacuum); err != nil {
			return 0, err
		}
	}
	var s int64
	if err := db.QueryRowContext(ctx, sizeQuery).Scan(&s); err != nil {
		return 0, fmt.Errorf("db size: %w", err)
	}
	return s, nil
}
