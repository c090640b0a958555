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
	"strings"
)

// ChecksumResult is the count-and-fold outcome for one segment, spec.md
// §4.2 (grounded on data_diff.table_segment.count_and_checksum).
type ChecksumResult struct {
	Count    int64
	Checksum string // empty when Count == 0
}

// Checksum computes the row count and folded hash for t's key range over
// its relevant columns (spec.md §4.2): every column is rendered through
// the Normalizer, concatenated, hashed per-row, then folded into a single
// aggregate so two segments can be compared in one round trip each.
func Checksum(ctx context.Context, t *TableSegment) (ChecksumResult, error) {
	cols, err := NormalizeColumns(t, t.Adapter, t.RelevantColumns())
	if err != nil {
		return ChecksumResult{}, err
	}
	// NormalizeColumns aliases each fragment; strip the alias back off for
	// the per-row hash expression (we want the raw normalized text, not
	// "expr AS name").
	raw := make([]string, len(cols))
	for i, c := range cols {
		raw[i] = c[:strings.LastIndex(c, " AS ")]
	}

	rowExpr := t.Adapter.ConcatExpr(raw, "|")
	hashExpr := t.Adapter.HashExpr(rowExpr)
	foldExpr := t.Adapter.FoldExpr(hashExpr)

	where, args := whereClause(t, t.Adapter, 1)
	sql := fmt.Sprintf("SELECT COUNT(*), %s FROM %s WHERE %s",
		foldExpr, t.Adapter.QualifyPath(t.Path), where)

	row := t.Adapter.QueryRow(ctx, sql, args...)
	var count int64
	var checksum *string
	if err := row.Scan(&count, &checksum); err != nil {
		return ChecksumResult{}, TransientBackendError(t.String(), err)
	}
	res := ChecksumResult{Count: count}
	if checksum != nil {
		res.Checksum = *checksum
	}
	return res, nil
}

// whereClause assembles the WHERE predicate shared by every query issued
// against a segment: key-range bounds, update-column age window, and the
// caller-supplied opaque predicate (spec.md §3). paramStart is the first
// placeholder ordinal for dialects using numbered parameters; dialects
// using '?' ignore it.
func whereClause(t *TableSegment, a Adapter, paramStart int) (string, []any) {
	var clauses []string
	var args []any
	n := paramStart

	placeholder := func() string {
		p := a.PlaceholderFor(n)
		n++
		return p
	}

	if t.MinKey != nil {
		clause, vals := keyBoundClause(t, a, ">=", t.MinKey, placeholder)
		clauses = append(clauses, clause)
		args = append(args, vals...)
	}
	if t.MaxKey != nil {
		clause, vals := keyBoundClause(t, a, "<", t.MaxKey, placeholder)
		clauses = append(clauses, clause)
		args = append(args, vals...)
	}
	if t.MinUpdate != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= %s", a.QuoteIdentifier(t.UpdateColumn), placeholder()))
		args = append(args, *t.MinUpdate)
	}
	if t.MaxUpdate != nil {
		clauses = append(clauses, fmt.Sprintf("%s < %s", a.QuoteIdentifier(t.UpdateColumn), placeholder()))
		args = append(args, *t.MaxUpdate)
	}
	if t.WherePredicate != "" {
		clauses = append(clauses, "("+t.WherePredicate+")")
	}
	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

func keyTuple(t *TableSegment, a Adapter) string {
	parts := make([]string, len(t.KeyColumns))
	for i, k := range t.KeyColumns {
		parts[i] = a.QuoteIdentifier(k)
	}
	return strings.Join(parts, ", ")
}

// boundValues flattens a MinKey/MaxKey bound into one value per key
// column: ChooseCheckpoints/scanKeyTuple hands back a bare scalar for a
// single-column key and a []any for a composite one.
func boundValues(bound any) []any {
	if composite, ok := bound.([]any); ok {
		return composite
	}
	return []any{bound}
}

// keyBoundClause renders a MinKey/MaxKey bound as a row-value comparison
// against t's key tuple, one placeholder per key column: single-column
// keys get "col op $n", composite keys get "(col1, col2) op ($n, $m)" so
// the bound values bind one-to-one instead of collapsing an entire
// composite key onto a single placeholder.
func keyBoundClause(t *TableSegment, a Adapter, op string, bound any, next func() string) (string, []any) {
	vals := boundValues(bound)
	placeholders := make([]string, len(vals))
	for i := range vals {
		placeholders[i] = next()
	}
	if len(vals) == 1 {
		return fmt.Sprintf("%s %s %s", a.QuoteIdentifier(t.KeyColumns[0]), op, placeholders[0]), vals
	}
	return fmt.Sprintf("(%s) %s (%s)", keyTuple(t, a), op, strings.Join(placeholders, ", ")), vals
}
