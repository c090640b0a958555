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

package engine

import (
	"context"
	"time"
)

// Rows abstracts a streamed result set, matching the shape of pgx.Rows
// closely enough that the Postgres adapter is a thin wrapper, while
// staying narrow enough for database/sql-backed adapters (DuckDB) to
// satisfy it too.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close()
}

// Row is a single-row result, as from QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// ColumnInfo is one row of schema introspection (spec.md §6).
type ColumnInfo struct {
	Name      string
	TypeText  string
	Precision int
	Scale     int
	Nullable  bool
}

// Adapter is the capability set the core requires of each database
// backend (spec.md §6). Per the "interface polymorphism" design note
// (spec.md §9), this is one flat interface rather than a class
// hierarchy, so tests can supply a fake that implements only what a
// given test needs wrapped in a minimal struct.
type Adapter interface {
	// Dialect identifies the SQL dialect for the Algorithm Selector and
	// for dialect-specific normalization branches.
	Dialect() string

	// CredentialsFingerprint is a stable, opaque string identifying the
	// connection target + credentials. The Algorithm Selector uses it to
	// decide whether two Adapters point at the same database.
	CredentialsFingerprint() string

	Healthcheck(ctx context.Context) error
	Close() error

	// ListColumns resolves path (e.g. [schema, table]) against the live
	// schema for the Schema Binder.
	ListColumns(ctx context.Context, path []string) ([]ColumnInfo, error)

	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) error

	// Dialect services (spec.md §6).
	QuoteIdentifier(name string) string
	QuoteLiteral(v any) string
	QualifyPath(path []string) string

	// PlaceholderFor returns the bound-parameter placeholder for the nth
	// argument (1-based) in this dialect: "$n" for Postgres, "?" for
	// DuckDB's database/sql driver.
	PlaceholderFor(n int) string

	// NormalizeColumn returns the canonical-text SQL fragment for col of
	// the given type (§4.1). OrderColumn returns a fragment usable in
	// ORDER BY / key-range comparisons with a consistent total order
	// across dialects (needed for UUID/text keys, §4.1's tie-break rule).
	NormalizeColumn(col string, t TypeDescriptor) (string, error)
	OrderColumn(col string, t TypeDescriptor) string

	ConcatExpr(parts []string, sep string) string
	HashExpr(expr string) string
	FoldExpr(hashExpr string) string

	SupportsFullOuterJoin() bool
	RandomSampleExpr(fraction float64) string
	TimeTravelClause(asOf time.Time) string
}
