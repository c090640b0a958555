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

import "strings"

// NormalizeColumns returns the SQL projection list used by both the
// Checksum Executor and the Local Row Differ: each column rendered
// through the Adapter's dialect-specific canonical-text fragment,
// aliased back to its original name so callers can address results by
// column name regardless of dialect (spec.md §4.1).
func NormalizeColumns(t *TableSegment, adapter Adapter, cols []string) ([]string, error) {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		td, ok := t.Schema[strings.ToLower(c)]
		if !ok {
			return nil, SchemaError("column %q missing from bound schema", c)
		}
		frag, err := adapter.NormalizeColumn(c, td)
		if err != nil {
			return nil, err
		}
		out = append(out, frag+" AS "+adapter.QuoteIdentifier(c))
	}
	return out, nil
}

// KeyOrderExprs returns the ORDER BY fragments for the key columns,
// using the Adapter's total-order tie-break (spec.md §4.1) so that
// identical checkpoints are chosen on both sides of a cross-engine diff.
func KeyOrderExprs(t *TableSegment, adapter Adapter) []string {
	exprs := make([]string, 0, len(t.KeyColumns))
	for _, k := range t.KeyColumns {
		td := t.Schema[strings.ToLower(k)]
		exprs = append(exprs, adapter.OrderColumn(k, td))
	}
	return exprs
}
