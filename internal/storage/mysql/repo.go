// Package mysql implements a MySQL-backed storage.Repository using
// go-sql-driver/mysql. Batches are written as multi-row INSERT statements.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dqx/internal/storage"
	myddl "dqx/internal/storage/mysql/ddl"

	"github.com/go-sql-driver/mysql"
)

// maxPlaceholders is MySQL's limit on prepared statement parameters.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // e.g. "user:pass@tcp(localhost:3306)/dq?parseTime=true"
	Table string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens and pings the pool, and returns a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts rows in one transaction, chunked so each statement stays
// under the placeholder limit. String lists are sent as JSON text.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	var inserted int64
	for _, chunk := range chunkRows(rows, maxPlaceholders/len(columns)) {
		query, args := buildInsert(r.cfg.Table, columns, chunk)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Exec implements storage.Repository.Exec for MySQL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.db.ExecContext(ctx, sql)
	return err
}

// buildInsert renders INSERT INTO t (cols) VALUES (?,..),(?,..) for rows and
// returns the flattened arguments.
func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = myddl.QuoteIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", myddl.Dialect.QuoteFQN(table), strings.Join(quoted, ","))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(tuple)
		args = append(args, storage.SQLRow(row)...)
	}
	return sb.String(), args
}

// chunkRows splits rows into slices of at most size rows.
func chunkRows(rows [][]any, size int) [][][]any {
	if size < 1 {
		size = 1
	}
	var out [][][]any
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}
