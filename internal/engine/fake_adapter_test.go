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
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fakeAdapter is a minimal stand-in for a real database adapter, used to
// exercise binder/checksum/bisect SQL assembly without a live database.
// Query and QueryRow are hook functions so individual tests can script
// the exact result a generated statement should produce.
type fakeAdapter struct {
	fingerprint string
	columns     []ColumnInfo

	queryRowFn func(ctx context.Context, sql string, args ...any) Row
	queryFn    func(ctx context.Context, sql string, args ...any) (Rows, error)
}

func (f *fakeAdapter) Dialect() string                 { return "fake" }
func (f *fakeAdapter) CredentialsFingerprint() string  { return f.fingerprint }
func (f *fakeAdapter) Healthcheck(ctx context.Context) error { return nil }
func (f *fakeAdapter) Close() error                     { return nil }

func (f *fakeAdapter) ListColumns(ctx context.Context, path []string) ([]ColumnInfo, error) {
	return f.columns, nil
}

func (f *fakeAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, sql, args...)
	}
	return &staticRows{}, nil
}

func (f *fakeAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.queryRowFn != nil {
		return f.queryRowFn(ctx, sql, args...)
	}
	return staticRow{}
}

func (f *fakeAdapter) Exec(ctx context.Context, sql string, args ...any) error { return nil }

func (f *fakeAdapter) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (f *fakeAdapter) QuoteLiteral(v any) string          { return fmt.Sprintf("%v", v) }
func (f *fakeAdapter) QualifyPath(path []string) string   { return strings.Join(path, ".") }
func (f *fakeAdapter) PlaceholderFor(n int) string        { return "$" + strconv.Itoa(n) }

func (f *fakeAdapter) NormalizeColumn(col string, t TypeDescriptor) (string, error) {
	return f.QuoteIdentifier(col), nil
}
func (f *fakeAdapter) OrderColumn(col string, t TypeDescriptor) string { return f.QuoteIdentifier(col) }
func (f *fakeAdapter) ConcatExpr(parts []string, sep string) string    { return strings.Join(parts, sep) }
func (f *fakeAdapter) HashExpr(expr string) string                    { return "hash(" + expr + ")" }
func (f *fakeAdapter) FoldExpr(hashExpr string) string                { return "fold(" + hashExpr + ")" }
func (f *fakeAdapter) SupportsFullOuterJoin() bool                    { return true }
func (f *fakeAdapter) RandomSampleExpr(fraction float64) string       { return "" }
func (f *fakeAdapter) TimeTravelClause(asOf time.Time) string         { return "" }

// staticRow/staticRows let tests that don't care about query results
// satisfy engine.Row/engine.Rows trivially.
type staticRow struct{}

func (staticRow) Scan(dest ...any) error { return nil }

type staticRows struct{ n int }

func (s *staticRows) Next() bool                   { return false }
func (s *staticRows) Scan(dest ...any) error        { return nil }
func (s *staticRows) Columns() ([]string, error)    { return nil, nil }
func (s *staticRows) Err() error                    { return nil }
func (s *staticRows) Close()                        {}
