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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRunMergesOverDefault(t *testing.T) {
	c := &Config{
		Runs: map[string]RunConfig{
			"default": {Threads: 4, Algorithm: "auto", BisectionFactor: 10},
			"nightly": {Algorithm: "hashdiff", Table1: "orders"},
		},
	}
	run, err := c.ResolveRun("nightly")
	require.NoError(t, err)
	assert.Equal(t, 4, run.Threads)
	assert.Equal(t, "hashdiff", run.Algorithm)
	assert.Equal(t, "orders", run.Table1)
	assert.Equal(t, 10, run.BisectionFactor)
}

func TestResolveRunUnknownNameErrors(t *testing.T) {
	c := &Config{Runs: map[string]RunConfig{"default": {}}}
	_, err := c.ResolveRun("missing")
	require.Error(t, err)
}

func TestResolveRunEmptyNameReturnsDefault(t *testing.T) {
	c := &Config{Runs: map[string]RunConfig{"default": {Threads: 8}}}
	run, err := c.ResolveRun("")
	require.NoError(t, err)
	assert.Equal(t, 8, run.Threads)
}

func TestMergeRunBoolFlagsAreSticky(t *testing.T) {
	base := RunConfig{AssumeUniqueKey: true}
	override := RunConfig{}
	merged := mergeRun(base, override)
	assert.True(t, merged.AssumeUniqueKey)
}
