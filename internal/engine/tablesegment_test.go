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
)

func TestRelevantColumnsDedupesUpdateAndExtras(t *testing.T) {
	seg := &TableSegment{
		KeyColumns:   []string{"id"},
		UpdateColumn: "updated_at",
		ExtraColumns: []string{"updated_at", "name", "id"},
	}
	assert.Equal(t, []string{"id", "updated_at", "name"}, seg.RelevantColumns())
}

func TestValidateRequiresKeyColumnsAndPath(t *testing.T) {
	require.Error(t, (&TableSegment{Path: []string{"t"}}).Validate())
	require.Error(t, (&TableSegment{KeyColumns: []string{"id"}}).Validate())
	require.NoError(t, (&TableSegment{KeyColumns: []string{"id"}, Path: []string{"t"}}).Validate())
}

func TestWithKeyBoundsDoesNotMutateOriginal(t *testing.T) {
	seg := &TableSegment{KeyColumns: []string{"id"}, Path: []string{"t"}, MinKey: 0, MaxKey: 100}
	narrowed := seg.WithKeyBounds(10, 20)
	assert.Equal(t, 0, seg.MinKey)
	assert.Equal(t, 100, seg.MaxKey)
	assert.Equal(t, 10, narrowed.MinKey)
	assert.Equal(t, 20, narrowed.MaxKey)
}
