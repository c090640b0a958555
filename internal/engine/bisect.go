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
)

// ChooseCheckpoints picks up to factor-1 interior key values splitting t
// into factor roughly-equal sub-segments, grounded on
// data_diff.table_segment.TableSegment.choose_checkpoints and the
// teacher's NTILE/offset-based generateSubRanges. It issues a single
// OFFSET-sampling query per checkpoint candidate using the segment's key
// order (spec.md §4.1 tie-break rule), so the same checkpoints are
// reproducible across re-runs of an unchanged table.
func ChooseCheckpoints(ctx context.Context, t *TableSegment, count int64, factor int) ([]any, error) {
	if factor < 2 || count <= 1 {
		return nil, nil
	}
	n := int64(factor) - 1
	if n > count-1 {
		n = count - 1
	}
	if n <= 0 {
		return nil, nil
	}

	order := KeyOrderExprs(t, t.Adapter)
	keyCols := keyTuple(t, t.Adapter)
	where, args := whereClause(t, t.Adapter, 1)

	checkpoints := make([]any, 0, n)
	for i := int64(1); i <= n; i++ {
		offset := (count * i) / (n + 1)
		sql := fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT 1 OFFSET %d",
			keyCols, t.Adapter.QualifyPath(t.Path), where, orderList(order), offset,
		)
		row := t.Adapter.QueryRow(ctx, sql, args...)
		key, err := scanKeyTuple(row, len(t.KeyColumns))
		if err != nil {
			return nil, TransientBackendError(t.String(), err)
		}
		checkpoints = append(checkpoints, key)
	}
	return checkpoints, nil
}

// SegmentByCheckpoints partitions t into len(checkpoints)+1 contiguous,
// non-overlapping sub-segments (spec.md §4.2 "Bisection invariant": the
// sub-segments' key ranges exactly tile the parent's, grounded on
// data_diff.table_segment.segment_by_checkpoints).
func SegmentByCheckpoints(t *TableSegment, checkpoints []any) []*TableSegment {
	bounds := make([]any, 0, len(checkpoints)+2)
	bounds = append(bounds, t.MinKey)
	bounds = append(bounds, checkpoints...)
	bounds = append(bounds, t.MaxKey)

	segs := make([]*TableSegment, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		segs = append(segs, t.WithKeyBounds(bounds[i], bounds[i+1]))
	}
	return segs
}

func orderList(exprs []string) string {
	out := ""
	for i, e := range exprs {
		if i > 0 {
			out += ", "
		}
		out += e
	}
	return out
}

// scanKeyTuple scans an n-column composite key into a []any suitable for
// use as a key bound; single-column keys collapse to the bare value so
// callers comparing against MinKey/MaxKey don't need to special-case
// arity.
func scanKeyTuple(row Row, n int) (any, error) {
	dest := make([]any, n)
	ptrs := make([]any, n)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, err
	}
	if n == 1 {
		return dest[0], nil
	}
	return dest, nil
}
