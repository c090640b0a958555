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
)

func TestSegmentByCheckpointsTilesParentExactly(t *testing.T) {
	parent := &TableSegment{KeyColumns: []string{"id"}, Path: []string{"t"}, MinKey: 0, MaxKey: 100}
	segs := SegmentByCheckpoints(parent, []any{25, 50, 75})
	if assert.Len(t, segs, 4) {
		assert.Equal(t, 0, segs[0].MinKey)
		assert.Equal(t, 25, segs[0].MaxKey)
		assert.Equal(t, 25, segs[1].MinKey)
		assert.Equal(t, 50, segs[1].MaxKey)
		assert.Equal(t, 50, segs[2].MinKey)
		assert.Equal(t, 75, segs[2].MaxKey)
		assert.Equal(t, 75, segs[3].MinKey)
		assert.Equal(t, 100, segs[3].MaxKey)
	}
}

func TestSegmentByCheckpointsNoCheckpointsReturnsWholeSegment(t *testing.T) {
	parent := &TableSegment{KeyColumns: []string{"id"}, Path: []string{"t"}, MinKey: nil, MaxKey: nil}
	segs := SegmentByCheckpoints(parent, nil)
	if assert.Len(t, segs, 1) {
		assert.Nil(t, segs[0].MinKey)
		assert.Nil(t, segs[0].MaxKey)
	}
}
