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
	"sync"

	"github.com/google/uuid"

	"github.com/tablediff/tablediff/pkg/types"
)

// exclusiveSampleCap bounds how many exclusive (present-on-one-side-only)
// rows RunJoinDiff keeps for Summary.ExclusiveSample, grounded on
// joindiff_tables._sample_and_count_exclusive's bounded sample: the count
// is exact, the sample is a prefix cap rather than unbounded accumulation.
const exclusiveSampleCap = 50

// JoinDiffOptions configures the single full-outer-join diff algorithm
// (spec.md §4.3), grounded on data_diff.joindiff_tables.JoinDifferBase
// and ._outerjoin.
type JoinDiffOptions struct {
	Threads             int
	Limit               int
	SampleExclusiveRows bool // populate Summary.ExclusiveCount/ExclusiveSample
	MaterializeAllRows  bool // emit a Match event for every identical row, not just diffs
	Logger              Logger
}

func (o JoinDiffOptions) normalized() JoinDiffOptions {
	if o.Threads < 1 {
		o.Threads = 1
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	return o
}

// RunJoinDiff diffs left against right with one FULL OUTER JOIN per
// segment pair (spec.md §4.3): both tables must live in the same
// database (both sides must share the same adapter / credentials
// fingerprint and the adapter must report SupportsFullOuterJoin), and
// per-segment work still runs through the shared Runtime so a caller can
// ask for multiple segments (e.g. a pre-sharded table) concurrently.
func RunJoinDiff(ctx context.Context, left, right *TableSegment, segments int, opts JoinDiffOptions) (*Stream, error) {
	opts = opts.normalized()
	if err := CrossCheckSchemas(left, right); err != nil {
		return nil, err
	}
	if left.Adapter.CredentialsFingerprint() != right.Adapter.CredentialsFingerprint() {
		return nil, ConfigError("joindiff requires both sides to live in the same database")
	}
	if !left.Adapter.SupportsFullOuterJoin() {
		return nil, ConfigError("%s does not support FULL OUTER JOIN required by joindiff", left.Adapter.Dialect())
	}

	rt := NewRuntime(ctx, opts.Threads, opts.Limit)

	if segments < 1 {
		segments = 1
	}
	count, err := Checksum(ctx, left)
	if err != nil {
		return nil, err
	}

	stream := newStream("joindiff", rt, count.Count)
	stream.summary.RunID = uuid.NewString()
	opts.Logger.Infof("joindiff run %s: %s vs %s", stream.summary.RunID, left, right)

	var colMu sync.Mutex
	perColumn := map[string]int64{}
	excl := &exclusiveAccum{}

	var checkpoints []any
	if segments > 1 {
		checkpoints, err = ChooseCheckpoints(ctx, left, count.Count, segments)
		if err != nil {
			return nil, err
		}
	}
	leftSegs := SegmentByCheckpoints(left, checkpoints)
	rightSegs := SegmentByCheckpoints(right, checkpoints)

	for i := range leftSegs {
		l, r := leftSegs[i], rightSegs[i]
		rt.Go(func(ctx context.Context) error {
			return outerJoinSegment(ctx, rt, stream, l, r, opts, &colMu, perColumn, excl)
		})
	}

	go func() {
		err := rt.Wait()
		incomplete := err != nil
		colMu.Lock()
		stream.mu.Lock()
		stream.summary.PerColumnDiffCounts = perColumn
		if opts.SampleExclusiveRows {
			excl.mu.Lock()
			stream.summary.ExclusiveCount = excl.count
			stream.summary.ExclusiveSample = excl.sample
			excl.mu.Unlock()
		}
		stream.mu.Unlock()
		colMu.Unlock()
		stream.finish(incomplete)
	}()

	return stream, nil
}

// exclusiveAccum tallies exclusive (present-on-one-side-only) rows across
// every segment, grounded on joindiff_tables._sample_and_count_exclusive:
// count is exact, sample is capped at exclusiveSampleCap.
type exclusiveAccum struct {
	mu     sync.Mutex
	count  int64
	sample []types.DiffEvent
}

func (e *exclusiveAccum) add(ev types.DiffEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count++
	if len(e.sample) < exclusiveSampleCap {
		e.sample = append(e.sample, ev)
	}
}

// outerJoinSegment is the single-query heart of JoinDiff, grounded on
// joindiff_tables.JoinDifferBase._outerjoin: one SELECT against a FULL
// OUTER JOIN of the two tables on their key columns, projecting each
// relevant column once per side (a_*/b_*). Every joined row is returned;
// classifyJoinRow then decides in Go, from whether each side's key is
// all NULL, whether the row is exclusive, differing, or identical, so no
// second query is needed.
func outerJoinSegment(ctx context.Context, rt *Runtime, stream *Stream, left, right *TableSegment, opts JoinDiffOptions, colMu *sync.Mutex, perColumn map[string]int64, excl *exclusiveAccum) error {
	a, b := left.Adapter, right.Adapter
	relevant := left.RelevantColumns()

	selectCols := make([]string, 0, len(relevant)*2+2)
	for _, c := range relevant {
		selectCols = append(selectCols, fmt.Sprintf("la.%s AS a_%s", a.QuoteIdentifier(c), c))
		selectCols = append(selectCols, fmt.Sprintf("lb.%s AS b_%s", b.QuoteIdentifier(c), c))
	}

	onParts := make([]string, len(left.KeyColumns))
	for i, k := range left.KeyColumns {
		onParts[i] = fmt.Sprintf("la.%s = lb.%s", a.QuoteIdentifier(k), b.QuoteIdentifier(right.KeyColumns[i]))
	}

	where, args := whereClause(left, a, 1)
	sql := fmt.Sprintf(
		"SELECT %s FROM %s la FULL OUTER JOIN %s lb ON %s WHERE %s",
		strings.Join(selectCols, ", "),
		a.QualifyPath(left.Path), b.QualifyPath(right.Path),
		strings.Join(onParts, " AND "), where,
	)

	rows, err := a.Query(ctx, sql, args...)
	if err != nil {
		return TransientBackendError(left.String(), err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return TransientBackendError(left.String(), err)
	}

	var checked int64
	for rows.Next() {
		dest := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return TransientBackendError(left.String(), err)
		}
		checked++

		av, bv := splitJoinRow(names, dest)
		cls, err := classifyJoinRow(left.KeyColumns, relevant, av, bv)
		if err != nil {
			return err
		}
		if len(cls.events) == 0 {
			continue
		}
		if !cls.matched && len(cls.diffCols) == 0 {
			// exclusive to one side: present only as a single event.
			if opts.SampleExclusiveRows {
				excl.add(cls.events[0])
			}
		}
		if cls.matched && !opts.MaterializeAllRows {
			continue
		}
		if len(cls.diffCols) > 0 {
			colMu.Lock()
			for _, c := range cls.diffCols {
				perColumn[c]++
			}
			colMu.Unlock()
		}
		for _, ev := range cls.events {
			if !rt.ReserveEmit(1) {
				return LimitReachedError()
			}
			stream.emit(ev)
		}
	}
	if err := rows.Err(); err != nil {
		return TransientBackendError(left.String(), err)
	}
	stream.addChecked(checked)
	return nil
}

// splitJoinRow separates the aliased a_*/b_* columns of one outer-join
// result row back into per-side maps; rowKeyIsNull on each map then gives
// the exclusive-row signal.
func splitJoinRow(names []string, dest []any) (a, b map[string]any) {
	a, b = map[string]any{}, map[string]any{}
	for i, n := range names {
		switch {
		case strings.HasPrefix(n, "a_"):
			a[strings.TrimPrefix(n, "a_")] = dest[i]
		case strings.HasPrefix(n, "b_"):
			b[strings.TrimPrefix(n, "b_")] = dest[i]
		}
	}
	return a, b
}

// joinClassification is one outer-join result row's verdict: events holds
// the DiffEvents it contributes (zero, one, or the paired minus/plus of a
// mismatch), diffCols the relevant columns that differ (empty for an
// exclusive row), matched whether the row was present and identical on
// both sides.
type joinClassification struct {
	events   []types.DiffEvent
	diffCols []string
	matched  bool
}

// classifyJoinRow is grounded on joindiff_tables.JoinDifferBase._outer_join:
// is_exclusive_a/is_exclusive_b (here rowKeyIsNull) drive which side's row,
// if either, is exclusive; a row with a NULL key on both sides can only
// arise from two genuinely unmatched join partners, which the original
// rejects with "NULL values in one or more primary keys" rather than
// silently dropping. A present-on-both-sides-but-differing row yields the
// old row as "-" and the new row as "+", never a single "+" (original:
// "if not is_xb: yield '-', a_row" then "if not is_xa: yield '+', b_row").
func classifyJoinRow(keyCols, relevant []string, a, b map[string]any) (joinClassification, error) {
	aAbsent := rowKeyIsNull(a, keyCols)
	bAbsent := rowKeyIsNull(b, keyCols)

	switch {
	case aAbsent && bAbsent:
		return joinClassification{}, SchemaError("NULL values in one or more primary keys")
	case aAbsent:
		return joinClassification{events: []types.DiffEvent{
			{Sign: types.Plus, Key: keyOfMap(b, keyCols), Row: b},
		}}, nil
	case bAbsent:
		return joinClassification{events: []types.DiffEvent{
			{Sign: types.Minus, Key: keyOfMap(a, keyCols), Row: a},
		}}, nil
	}

	var diffCols []string
	for _, c := range relevant {
		if fmt.Sprint(a[c]) != fmt.Sprint(b[c]) {
			diffCols = append(diffCols, c)
		}
	}
	if len(diffCols) == 0 {
		return joinClassification{
			events:  []types.DiffEvent{{Sign: types.Match, Key: keyOfMap(a, keyCols), Row: a}},
			matched: true,
		}, nil
	}
	return joinClassification{
		events: []types.DiffEvent{
			{Sign: types.Minus, Key: keyOfMap(a, keyCols), Row: a},
			{Sign: types.Plus, Key: keyOfMap(b, keyCols), Row: b},
		},
		diffCols: diffCols,
	}, nil
}

func rowKeyIsNull(row map[string]any, keyCols []string) bool {
	for _, k := range keyCols {
		if row[k] != nil {
			return false
		}
	}
	return true
}

func keyOfMap(row map[string]any, keyCols []string) []any {
	k := make([]any, len(keyCols))
	for i, c := range keyCols {
		k[i] = row[c]
	}
	return k
}
