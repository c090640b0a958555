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

// Package postgres implements the engine.Adapter capability set against
// Postgres, grounded on the connection and query patterns of the
// teacher's internal/auth and internal/core packages, rebuilt on pgx/v5
// (the teacher's go.mod carried pgx/v4 in places; v5 is the current
// jackc/pgx major and is what the rest of the example pack pairs with
// DuckDB, so the module standardizes on it).
package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablediff/tablediff/internal/engine"
)

// Adapter wraps a pgxpool.Pool. Query/QueryRow/Exec thin-wrap pgx's own
// methods; Rows/Row wrappers below satisfy engine.Rows/engine.Row.
type Adapter struct {
	pool *pgxpool.Pool
	dsn  string
}

// Open establishes a pooled connection to dsn, a standard libpq
// connection string or URL, and verifies it with a ping (grounded on
// the teacher's internal/auth connection-string handling).
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, engine.ConfigError("invalid postgres connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, engine.ConfigError("failed to open postgres pool: %v", err)
	}
	a := &Adapter{pool: pool, dsn: dsn}
	if err := a.Healthcheck(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *Adapter) Dialect() string { return "postgres" }

// CredentialsFingerprint hashes the DSN so two Adapters pointed at the
// same database (even via different literal connection strings in a
// config file) compare equal without ever logging the DSN itself.
func (a *Adapter) CredentialsFingerprint() string {
	key := a.dsn
	if cfg, err := pgx.ParseConfig(a.dsn); err == nil {
		key = fmt.Sprintf("%s|%d|%s|%s|%s", cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (a *Adapter) Healthcheck(ctx context.Context) error {
	var v int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&v); err != nil {
		return engine.TransientBackendError("", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

func (a *Adapter) ListColumns(ctx context.Context, path []string) ([]engine.ColumnInfo, error) {
	schema, table := splitPath(path)
	rows, err := a.pool.Query(ctx, `
		SELECT column_name, data_type,
		       COALESCE(numeric_precision, datetime_precision, 0),
		       COALESCE(numeric_scale, 0),
		       is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
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

func (a *Adapter) Query(ctx context.Context, sql string, args ...any) (engine.Rows, error) {
	r, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, engine.TransientBackendError("", err)
	}
	return &rowsAdapter{r}, nil
}

func (a *Adapter) QueryRow(ctx context.Context, sql string, args ...any) engine.Row {
	return a.pool.QueryRow(ctx, sql, args...)
}

func (a *Adapter) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := a.pool.Exec(ctx, sql, args...); err != nil {
		return engine.TransientBackendError("", err)
	}
	return nil
}

type rowsAdapter struct{ pgx.Rows }

func (r *rowsAdapter) Columns() ([]string, error) {
	fields := r.Rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f.Name)
	}
	return names, nil
}

// QuoteIdentifier double-quotes name, doubling any embedded quote
// (grounded on the teacher's db/queries.SanitiseIdentifier).
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
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = a.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func (a *Adapter) PlaceholderFor(n int) string { return "$" + strconv.Itoa(n) }

// NormalizeColumn renders col as canonical text per spec.md §4.1: UTC
// ISO-8601 for timestamps at a fixed fractional-second precision,
// fixed-scale text for decimals, lower-case hex for UUIDs.
func (a *Adapter) NormalizeColumn(col string, t engine.TypeDescriptor) (string, error) {
	q := a.QuoteIdentifier(col)
	switch t.Kind {
	case engine.KindTimestamp:
		expr := q
		if t.WithTimezone {
			expr = fmt.Sprintf("%s AT TIME ZONE 'UTC'", q)
		}
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD HH24:MI:SS.US')", expr), nil
	case engine.KindDate:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", q), nil
	case engine.KindDecimal:
		return fmt.Sprintf("round(%s, %d)::text", q, t.Scale), nil
	case engine.KindFloat:
		return fmt.Sprintf("%s::float8::text", q), nil
	case engine.KindUUIDKey:
		return fmt.Sprintf("lower(%s::text)", q), nil
	case engine.KindBoolean:
		return fmt.Sprintf("%s::text", q), nil
	case engine.KindJSON:
		return fmt.Sprintf("%s::jsonb::text", q), nil
	default:
		return fmt.Sprintf("%s::text", q), nil
	}
}

func (a *Adapter) OrderColumn(col string, t engine.TypeDescriptor) string {
	return a.QuoteIdentifier(col)
}

// ConcatExpr joins parts with sep using '||', coalescing NULLs to a
// sentinel so a NULL column doesn't collapse the whole row hash to NULL.
func (a *Adapter) ConcatExpr(parts []string, sep string) string {
	wrapped := make([]string, len(parts))
	for i, p := range parts {
		wrapped[i] = fmt.Sprintf("COALESCE(%s, '\x00NULL\x00')", p)
	}
	return strings.Join(wrapped, " || '"+sep+"' || ")
}

func (a *Adapter) HashExpr(expr string) string {
	return fmt.Sprintf("md5(%s)", expr)
}

// FoldExpr folds the per-row hash column into one aggregate per spec.md
// §4.2: the row hashes are concatenated with string_agg in hash order and
// the result is hashed again with md5, so the fold does not depend on the
// order rows are scanned in.
func (a *Adapter) FoldExpr(hashExpr string) string {
	return fmt.Sprintf("md5(string_agg(%s, '' ORDER BY %s))", hashExpr, hashExpr)
}

func (a *Adapter) SupportsFullOuterJoin() bool { return true }

func (a *Adapter) RandomSampleExpr(fraction float64) string {
	return fmt.Sprintf("TABLESAMPLE BERNOULLI (%f)", fraction*100)
}

func (a *Adapter) TimeTravelClause(asOf time.Time) string {
	return ""
}

func splitPath(path []string) (schema, table string) {
	switch len(path) {
	case 1:
		return "public", path[0]
	case 2:
		return path[0], path[1]
	default:
		return "public", strings.Join(path, ".")
	}
}
