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

func TestWidenPrecisionTimestampTakesCoarser(t *testing.T) {
	a := TypeDescriptor{Kind: KindTimestamp, Precision: 6}
	b := TypeDescriptor{Kind: KindTimestamp, Precision: 3}
	wa, wb, err := widenPrecision(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, wa.Precision)
	assert.Equal(t, 3, wb.Precision)
}

func TestWidenPrecisionDecimalTakesWiderScaleAndPrecision(t *testing.T) {
	a := TypeDescriptor{Kind: KindDecimal, Precision: 10, Scale: 2}
	b := TypeDescriptor{Kind: KindDecimal, Precision: 18, Scale: 4}
	wa, wb, err := widenPrecision(a, b)
	require.NoError(t, err)
	assert.Equal(t, 18, wa.Precision)
	assert.Equal(t, 4, wa.Scale)
	assert.Equal(t, 18, wb.Precision)
	assert.Equal(t, 4, wb.Scale)
}

func TestWidenPrecisionRejectsMismatchedKinds(t *testing.T) {
	_, _, err := widenPrecision(TypeDescriptor{Kind: KindTimestamp}, TypeDescriptor{Kind: KindDecimal})
	require.Error(t, err)
}

func TestCompatibleKindsTextAndUUIDInterchangeable(t *testing.T) {
	assert.True(t, compatibleKinds(KindTextualKey, KindUUIDKey))
	assert.True(t, compatibleKinds(KindUUIDKey, KindUUIDKey))
	assert.False(t, compatibleKinds(KindIntegralKey, KindTextualKey))
}

func TestKindIsKey(t *testing.T) {
	assert.True(t, KindIntegralKey.IsKey())
	assert.True(t, KindUUIDKey.IsKey())
	assert.False(t, KindJSON.IsKey())
}
