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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindSchemaExpandsWildcardExcludingKeyAndUpdate(t *testing.T) {
	a := &fakeAdapter{columns: []ColumnInfo{
		{Name: "id", TypeText: "integer"},
		{Name: "updated_at", TypeText: "timestamp"},
		{Name: "name", TypeText: "text"},
		{Name: "email", TypeText: "text"},
	}}
	seg := &TableSegment{
		Adapter: a, Path: []string{"t"},
		KeyColumns: []string{"id"}, UpdateColumn: "updated_at",
		ExtraColumns: []string{"%"},
	}
	require.NoError(t, BindSchema(context.Background(), seg))
	assert.Equal(t, []string{"email", "name"}, seg.ExtraColumns)
}

func TestBindSchemaRejectsUnknownColumn(t *testing.T) {
	a := &fakeAdapter{columns: []ColumnInfo{{Name: "id", TypeText: "integer"}}}
	seg := &TableSegment{Adapter: a, Path: []string{"t"}, KeyColumns: []string{"id"}, ExtraColumns: []string{"ghost"}}
	err := BindSchema(context.Background(), seg)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindSchemaError, e.Kind)
}

func TestBindSchemaRejectsNonKeyableKeyColumn(t *testing.T) {
	a := &fakeAdapter{columns: []ColumnInfo{{Name: "payload", TypeText: "json"}}}
	seg := &TableSegment{Adapter: a, Path: []string{"t"}, KeyColumns: []string{"payload"}}
	require.Error(t, BindSchema(context.Background(), seg))
}

func TestBindSchemaRejectsEmptyTable(t *testing.T) {
	a := &fakeAdapter{columns: nil}
	seg := &TableSegment{Adapter: a, Path: []string{"t"}, KeyColumns: []string{"id"}}
	require.Error(t, BindSchema(context.Background(), seg))
}

func TestCrossCheckSchemasWidensAndValidates(t *testing.T) {
	left := &TableSegment{
		KeyColumns: []string{"id"}, UpdateColumn: "",
		Schema: map[string]TypeDescriptor{"id": {Kind: KindIntegralKey}},
	}
	right := &TableSegment{
		KeyColumns: []string{"id"},
		Schema:     map[string]TypeDescriptor{"id": {Kind: KindIntegralKey}},
	}
	require.NoError(t, CrossCheckSchemas(left, right))
}

func TestCrossCheckSchemasRejectsIncompatibleKeyKinds(t *testing.T) {
	left := &TableSegment{KeyColumns: []string{"id"}, Schema: map[string]TypeDescriptor{"id": {Kind: KindIntegralKey}}}
	right := &TableSegment{KeyColumns: []string{"id"}, Schema: map[string]TypeDescriptor{"id": {Kind: KindJSON}}}
	require.Error(t, CrossCheckSchemas(left, right))
}
