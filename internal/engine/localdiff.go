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

	"github.com/tablediff/tablediff/pkg/types"
)

// FetchRows pulls every relevant column for t's key range, normalized,
// ordered by key (spec.md §4.3), grounded on the teacher's fetchRows in
// internal/core/table_diff.go. It's used once a HashDiff bisection
// bottoms out below the bisection threshold.
func FetchRows(ctx context.Context, t *TableSegment) ([]map[string]any, error) {
	relevant := t.RelevantColumns()
	cols, err := NormalizeColumns(t, t.Adapter, relevant)
	if err != nil {
		return nil, err
	}
	order := KeyOrderExprs(t, t.Adapter)
	where, args := whereClause(t, t.Adapter, 1)

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(cols, ", "), t.Adapter.QualifyPath(t.Path), where, orderList(order))

	rows, err := t.Adapter.Query(ctx, sql, args...)
	if err != nil {
		return nil, TransientBackendError(t.String(), err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, TransientBackendError(t.String(), err)
	}

	var out []map[string]any
	for rows.Next() {
		dest := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, TransientBackendError(t.String(), err)
		}
		row := make(map[string]any, len(names))
		for i, n := range names {
			row[n] = dest[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, TransientBackendError(t.String(), err)
	}
	return out, nil
}

// DiffRows compares two already key-ordered row sets from the two sides
// of a segment and emits one DiffEvent per exclusive row and a "-"/"+"
// pair per mismatched row, grounded on the teacher's compareBlocks
// merge-diff (internal/core/table_diff.go), generalized here to arbitrary
// key arity and rewritten against a per-column equality check instead of
// reflect.DeepEqual. Each emitted event carries its side's full row.
//
// keyKinds, when non-nil, gives the bound Kind of each key column so the
// merge walk's comparator agrees with the ORDER BY the rows were fetched
// with: row values here are the Normalizer's canonical text (e.g. an
// integer key arrives as "9", "10", ...), which sorts lexicographically
// out of step with the numeric ORDER BY the SQL issued. Key columns with
// no entry in keyKinds (all of them when keyKinds is nil) compare
// lexically.
func DiffRows(left, right []map[string]any, keyCols []string, keyKinds []Kind, assumeUniqueKey bool) ([]types.DiffEvent, error) {
	var events []types.DiffEvent
	i, j := 0, 0

	keyOf := func(row map[string]any) []any {
		k := make([]any, len(keyCols))
		for n, c := range keyCols {
			k[n] = row[c]
		}
		return k
	}
	kindOf := func(n int) Kind {
		if n < len(keyKinds) {
			return keyKinds[n]
		}
		return KindTextualKey
	}
	keyLess := func(a, b []any) int {
		for n := range a {
			if kindOf(n) == KindIntegralKey {
				if ai, aok := parseKeyInt(a[n]); aok {
					if bi, bok := parseKeyInt(b[n]); bok {
						switch {
						case ai == bi:
							continue
						case ai < bi:
							return -1
						default:
							return 1
						}
					}
				}
			}
			sa, sb := fmt.Sprint(a[n]), fmt.Sprint(b[n])
			if sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
		return 0
	}

	for i < len(left) && j < len(right) {
		kl, kr := keyOf(left[i]), keyOf(right[j])
		switch keyLess(kl, kr) {
		case -1:
			events = append(events, types.DiffEvent{Sign: types.Minus, Key: kl, Row: left[i]})
			i++
		case 1:
			events = append(events, types.DiffEvent{Sign: types.Plus, Key: kr, Row: right[j]})
			j++
		default:
			if !assumeUniqueKey {
				if i+1 < len(left) && keyLess(keyOf(left[i+1]), kr) == 0 {
					return nil, DuplicateKeyError(fmt.Sprint(kl))
				}
				if j+1 < len(right) && keyLess(kl, keyOf(right[j+1])) == 0 {
					return nil, DuplicateKeyError(fmt.Sprint(kr))
				}
			}
			if !rowsEqual(left[i], right[j]) {
				events = append(events, types.DiffEvent{Sign: types.Minus, Key: kl, Row: left[i]})
				events = append(events, types.DiffEvent{Sign: types.Plus, Key: kr, Row: right[j]})
			}
			i++
			j++
		}
	}
	for ; i < len(left); i++ {
		events = append(events, types.DiffEvent{Sign: types.Minus, Key: keyOf(left[i]), Row: left[i]})
	}
	for ; j < len(right); j++ {
		events = append(events, types.DiffEvent{Sign: types.Plus, Key: keyOf(right[j]), Row: right[j]})
	}
	return events, nil
}

// parseKeyInt parses v (a normalized-text or native integer key value)
// as a base-10 integer for numeric key comparison.
func parseKeyInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		return n, err == nil
	default:
		n, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)
		return n, err == nil
	}
}

// keyKindsFor extracts the bound Kind of each of t's key columns so
// DiffRows's merge-walk comparator can match the SQL order the rows were
// fetched in (localdiff.go's DiffRows doc comment).
func keyKindsFor(t *TableSegment) []Kind {
	kinds := make([]Kind, len(t.KeyColumns))
	for i, k := range t.KeyColumns {
		kinds[i] = t.Schema[strings.ToLower(k)].Kind
	}
	return kinds
}

func rowsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if fmt.Sprint(v) != fmt.Sprint(b[k]) {
			return false
		}
	}
	return true
}
