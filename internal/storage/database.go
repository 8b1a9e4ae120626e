package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
// Its embedded Queries run outside of any transaction.
type DB struct {
	*Queries
	conn *sqlx.DB
}

// Queries holds the row-level operations. It runs either directly against
// the connection or inside a transaction started by InTx.
type Queries struct {
	q sqlx.ExtContext
}

// Open creates a new database connection and ensures the schema is up to date.
// path may be ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls and
	// serialises every operation.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return New(conn), nil
}

// New wraps an already opened connection. The schema is not applied.
func New(conn *sqlx.DB) *DB {
	return &DB{Queries: &Queries{q: conn}, conn: conn}
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func (q *Queries) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.q, dest, query, args...)
}

func (q *Queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.q, dest, query, args...)
}
