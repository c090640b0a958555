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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentPair(sameDB bool) (*TableSegment, *TableSegment) {
	left := &TableSegment{
		Adapter: &fakeAdapter{fingerprint: "a"}, Path: []string{"t"},
		KeyColumns: []string{"id"}, Schema: map[string]TypeDescriptor{"id": {Kind: KindIntegralKey}},
	}
	rightFingerprint := "a"
	if !sameDB {
		rightFingerprint = "b"
	}
	right := &TableSegment{
		Adapter: &fakeAdapter{fingerprint: rightFingerprint}, Path: []string{"t"},
		KeyColumns: []string{"id"}, Schema: map[string]TypeDescriptor{"id": {Kind: KindIntegralKey}},
	}
	return left, right
}

func TestSelectAutoPicksJoinDiffForSameDatabase(t *testing.T) {
	left, right := segmentPair(true)
	stream, err := Select(context.Background(), left, right, RunOptions{Algorithm: AlgorithmAuto})
	require.NoError(t, err)
	select {
	case <-stream.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
	assert.Equal(t, "joindiff", stream.Summary().Algorithm)
}

func TestSelectAutoPicksHashDiffAcrossDatabases(t *testing.T) {
	left, right := segmentPair(false)
	stream, err := Select(context.Background(), left, right, RunOptions{Algorithm: AlgorithmAuto, HashDiffOptions: HashDiffOptions{Threads: 2}})
	require.NoError(t, err)
	select {
	case <-stream.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
	assert.Equal(t, "hashdiff", stream.Summary().Algorithm)
}

func TestSelectRejectsUnknownAlgorithm(t *testing.T) {
	left, right := segmentPair(true)
	_, err := Select(context.Background(), left, right, RunOptions{Algorithm: "nonsense"})
	require.Error(t, err)
}

func TestJoinDiffRequiresSameDatabase(t *testing.T) {
	left, right := segmentPair(false)
	_, err := RunJoinDiff(context.Background(), left, right, 1, JoinDiffOptions{})
	require.Error(t, err)
}
