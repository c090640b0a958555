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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablediff/tablediff/pkg/types"
)

func row(id int, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}

func TestDiffRowsDetectsMissingRow(t *testing.T) {
	left := []map[string]any{row(1, "a"), row(2, "b"), row(3, "c")}
	right := []map[string]any{row(1, "a"), row(3, "c")}
	events, err := DiffRows(left, right, []string{"id"}, nil, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.Minus, events[0].Sign)
	assert.Equal(t, []any{2}, events[0].Key)
}

func TestDiffRowsDetectsExtraRow(t *testing.T) {
	left := []map[string]any{row(1, "a")}
	right := []map[string]any{row(1, "a"), row(2, "b")}
	events, err := DiffRows(left, right, []string{"id"}, nil, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.Plus, events[0].Sign)
}

func TestDiffRowsDetectsMutatedColumn(t *testing.T) {
	left := []map[string]any{row(1, "old")}
	right := []map[string]any{row(1, "new")}
	events, err := DiffRows(left, right, []string{"id"}, nil, true)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.Minus, events[0].Sign)
	assert.Equal(t, types.Plus, events[1].Sign)
}

func TestDiffRowsIdentialRowsEmitNothing(t *testing.T) {
	left := []map[string]any{row(1, "a"), row(2, "b")}
	right := []map[string]any{row(1, "a"), row(2, "b")}
	events, err := DiffRows(left, right, []string{"id"}, nil, true)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDiffRowsDetectsDuplicateKeyWhenNotAssumedUnique(t *testing.T) {
	left := []map[string]any{row(1, "a"), row(1, "a-dup")}
	right := []map[string]any{row(1, "a")}
	_, err := DiffRows(left, right, []string{"id"}, nil, false)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindDuplicateKey, e.Kind)
}

func TestDiffRowsDuplicateKeyIgnoredWhenAssumedUnique(t *testing.T) {
	left := []map[string]any{row(1, "a"), row(1, "a-dup")}
	right := []map[string]any{row(1, "a")}
	_, err := DiffRows(left, right, []string{"id"}, nil, true)
	require.NoError(t, err)
}

// TestDiffRowsIntegralKeyOrderCrossesDigitBoundary guards against comparing
// normalized (::text) integer keys lexicographically: "10" < "9" as
// strings but not as the integers FetchRows's ORDER BY actually delivers
// them in, which used to manufacture a spurious +(10)/-(9)/-(10) instead
// of the single true -(9) difference.
func TestDiffRowsIntegralKeyOrderCrossesDigitBoundary(t *testing.T) {
	textRow := func(id, name string) map[string]any { return map[string]any{"id": id, "name": name} }
	left := []map[string]any{textRow("9", "a"), textRow("10", "b")}
	right := []map[string]any{textRow("10", "b")}
	events, err := DiffRows(left, right, []string{"id"}, []Kind{KindIntegralKey}, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.Minus, events[0].Sign)
	assert.Equal(t, []any{"9"}, events[0].Key)
}
