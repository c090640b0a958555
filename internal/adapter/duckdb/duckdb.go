// ///////////////////////////////////////////////////////////////////////////
//
// # tablediff
//
// Copyright (C) 2023 - 2026, pgEdge (https://www.pgedge.com/)
//
// This software is released under the PostgreSQL License:
// https://opensource.org/license/postgresql
//
// ///////////////////////////////////////////////////////////////////////////

// Package duckdb implements the engine.Adapter capability set against
// DuckDB via database/sql, grounded on Lychee-Technology-forma's
// internal/duckdb_conn.go connection pattern (driver registration,
// an open-connection cap, health check query).
package duckdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tablediff/tablediff/internal/engine"
)

// Adapter wraps a database/sql DB opened with the duckdb driver. DuckDB
// serializes writer access internally, so the pool is capped at a small
// connection count (grounded on forma's db.SetMaxOpenConns(1) default).
type Adapter struct {
	db   *sql.DB
	path string
}

// Open opens path (a file path, or ":memory:") as a DuckDB database.
func Open(ctx context.Context, path string, maxConns int) (*Adapter, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, engine.ConfigError("failed to open duckdb database: %v", err)
	}
	if maxConns < 1 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)

	a := &Adapter{db: db, path: path}
	if err := a.Healthcheck(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Adapter) Dialect() string { return "duckdb" }

func (a *Adapter) CredentialsFingerprint() string {
	sum := sha256.Sum256([]byte("duckdb:" + a.path))
	return hex.EncodeToString(sum[:])
}

func (a *Adapter) Healthcheck(ctx context.Context) error {
	var v int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&v); err != nil {
		return engine.TransientBackendError("", err)
	}
	return nil
}

func (a *Adapter) Close() error { return a.db.Close() }

func (a *Adapter) ListColumns(ctx context.Context, path []string) ([]engine.ColumnInfo, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT column_name, data_type, COALESCE(numeric_precision, 0), COALESCE(numeric_scale, 0), is_nullable = 'YES' FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position", tableName(path))
	if err != nil {
		return nil, engine.TransientBackendError("", err)
	}
	defer rows.Close()

	var cols []engine.ColumnInfo
	for rows.Next() {
		var c engine.ColumnInfo
		if err := rows.Scan(&c.Name, &c.TypeText, &c.Precision, &c.Scale, &c.Nullable); err != nil {
			return nil, engine.TransientBackendError("", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (a *Adapter) Query(ctx context.Context, query string, args ...any) (engine.Rows, error) {
	r, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engine.TransientBackendError("", err)
	}
	return &rowsAdapter{r}, nil
}

func (a *Adapter) QueryRow(ctx context.Context, query string, args ...any) engine.Row {
	return a.db.QueryRowContext(ctx, query, args...)
}

func (a *Adapter) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return engine.TransientBackendError("", err)
	}
	return nil
}

type rowsAdapter struct{ *sql.Rows }

func (r *rowsAdapter) Columns() ([]string, error) { return r.Rows.Columns() }
func (r *rowsAdapter) Close()                     { r.Rows.Close() }

func (a *Adapter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *Adapter) QuoteLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func (a *Adapter) QualifyPath(path []string) string {
	return a.QuoteIdentifier(tableName(path))
}

func (a *Adapter) PlaceholderFor(n int) string { return "?" }

func (a *Adapter) NormalizeColumn(col string, t engine.TypeDescriptor) (string, error) {
	q := a.QuoteIdentifier(col)
	switch t.Kind {
	case engine.KindTimestamp:
		return fmt.Sprintf("strftime(%s AT TIME ZONE 'UTC', '%%Y-%%m-%%d %%H:%%M:%%S.%%f')", q), nil
	case engine.KindDate:
		return fmt.Sprintf("strftime(%s, '%%Y-%%m-%%d')", q), nil
	case engine.KindDecimal:
		return fmt.Sprintf("CAST(round(%s, %d) AS VARCHAR)", q, t.Scale), nil
	case engine.KindFloat:
		return fmt.Sprintf("CAST(%s AS VARCHAR)", q), nil
	case engine.KindUUIDKey:
		return fmt.Sprintf("lower(CAST(%s AS VARCHAR))", q), nil
	default:
		return fmt.Sprintf("CAST(%s AS VARCHAR)", q), nil
	}
}

func (a *Adapter) OrderColumn(col string, t engine.TypeDescriptor) string {
	return a.QuoteIdentifier(col)
}

func (a *Adapter) ConcatExpr(parts []string, sep string) string {
	wrapped := make([]string, len(parts))
	for i, p := range parts {
		wrapped[i] = fmt.Sprintf("COALESCE(%s, '\x00NULL\x00')", p)
	}
	return "concat_ws('" + sep + "', " + strings.Join(wrapped, ", ") + ")"
}

func (a *Adapter) HashExpr(expr string) string {
	return fmt.Sprintf("md5(%s)", expr)
}

func (a *Adapter) FoldExpr(hashExpr string) string {
	return fmt.Sprintf("md5(string_agg(%s, '' ORDER BY %s))", hashExpr, hashExpr)
}

// SupportsFullOuterJoin is true, but JoinDiff additionally requires both
// TableSegment sides to share the same Adapter instance, which the
// Algorithm Selector already checks via CredentialsFingerprint.
func (a *Adapter) SupportsFullOuterJoin() bool { return true }

func (a *Adapter) RandomSampleExpr(fraction float64) string {
	return fmt.Sprintf("USING SAMPLE %f%%", fraction*100)
}

// TimeTravelClause is unsupported; DuckDB has no native time-travel
// clause comparable to a warehouse's AS OF syntax.
func (a *Adapter) TimeTravelClause(asOf time.Time) string { return "" }

func tableName(path []string) string {
	return strings.Join(path, "_")
}
