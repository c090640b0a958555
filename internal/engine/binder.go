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
	"sort"
	"strings"
)

// BindSchema resolves a TableSegment's declared key/update/extra columns
// against the live schema (spec.md §4.10): wildcard '%' entries in
// ExtraColumns expand to every column not already named as a key or the
// update column (Open Question 3), and any column named explicitly that
// is absent from the live schema fails with SchemaError before any
// checksum is issued.
func BindSchema(ctx context.Context, t *TableSegment) error {
	cols, err := t.Adapter.ListColumns(ctx, t.Path)
	if err != nil {
		return FatalBackendError(t.String(), err)
	}
	if len(cols) == 0 {
		return SchemaError("%s: no columns found, does the table exist?", t.Adapter.QualifyPath(t.Path))
	}

	byName := make(map[string]ColumnInfo, len(cols))
	for _, c := range cols {
		byName[strings.ToLower(c.Name)] = c
	}

	lookup := func(name string) (ColumnInfo, bool) {
		if t.CaseSensitive {
			for _, c := range cols {
				if c.Name == name {
					return c, true
				}
			}
			return ColumnInfo{}, false
		}
		c, ok := byName[strings.ToLower(name)]
		return c, ok
	}

	for _, k := range t.KeyColumns {
		ci, ok := lookup(k)
		if !ok {
			return SchemaError("key column %q not found in %s", k, t.Adapter.QualifyPath(t.Path))
		}
		if td, err := descriptorOf(ci); err != nil {
			return err
		} else if !td.Kind.IsKey() {
			return SchemaError("key column %q has a non-bisectable type %s", k, ci.TypeText)
		}
	}

	if t.UpdateColumn != "" {
		if _, ok := lookup(t.UpdateColumn); !ok {
			return SchemaError("update column %q not found in %s", t.UpdateColumn, t.Adapter.QualifyPath(t.Path))
		}
	}

	excluded := make(map[string]bool, len(t.KeyColumns)+1)
	for _, k := range t.KeyColumns {
		excluded[strings.ToLower(k)] = true
	}
	if t.UpdateColumn != "" {
		excluded[strings.ToLower(t.UpdateColumn)] = true
	}

	var expanded []string
	for _, e := range t.ExtraColumns {
		if e != "%" {
			if _, ok := lookup(e); !ok {
				return SchemaError("column %q not found in %s", e, t.Adapter.QualifyPath(t.Path))
			}
			if !excluded[strings.ToLower(e)] {
				expanded = append(expanded, e)
			}
			continue
		}
		var names []string
		for _, c := range cols {
			if excluded[strings.ToLower(c.Name)] {
				continue
			}
			names = append(names, c.Name)
		}
		sort.Strings(names)
		expanded = append(expanded, names...)
	}
	t.ExtraColumns = expanded

	schema := make(map[string]TypeDescriptor, len(cols))
	for _, c := range cols {
		td, err := descriptorOf(c)
		if err != nil {
			return err
		}
		schema[strings.ToLower(c.Name)] = td
	}
	t.Schema = schema

	return t.Validate()
}

// CrossCheckSchemas enforces TableSegment invariant 3 (spec.md §3): the
// compared key types on both sides must be structurally compatible after
// normalization, and the two sides are widened in place to a common
// representation before any checksum work is scheduled.
func CrossCheckSchemas(a, b *TableSegment) error {
	if len(a.KeyColumns) != len(b.KeyColumns) {
		return SchemaError("key column count mismatch: %d vs %d", len(a.KeyColumns), len(b.KeyColumns))
	}
	for i := range a.KeyColumns {
		ta := a.Schema[strings.ToLower(a.KeyColumns[i])]
		tb := b.Schema[strings.ToLower(b.KeyColumns[i])]
		if !compatibleKinds(ta.Kind, tb.Kind) {
			return SchemaError("key column %q (%s) is incompatible with %q (%s)",
				a.KeyColumns[i], ta.Kind, b.KeyColumns[i], tb.Kind)
		}
		wa, wb, err := widenPrecision(ta, tb)
		if err != nil {
			return err
		}
		a.Schema[strings.ToLower(a.KeyColumns[i])] = wa
		b.Schema[strings.ToLower(b.KeyColumns[i])] = wb
	}

	relA, relB := a.RelevantColumns(), b.RelevantColumns()
	if len(relA) != len(relB) {
		return SchemaError("relevant column count mismatch: %d vs %d", len(relA), len(relB))
	}
	for i := range relA {
		ta, ok := a.Schema[strings.ToLower(relA[i])]
		if !ok {
			continue
		}
		tb, ok := b.Schema[strings.ToLower(relB[i])]
		if !ok {
			continue
		}
		if !compatibleKinds(ta.Kind, tb.Kind) {
			return SchemaError("column %q (%s) is incompatible with %q (%s)", relA[i], ta.Kind, relB[i], tb.Kind)
		}
		wa, wb, err := widenPrecision(ta, tb)
		if err != nil {
			return err
		}
		a.Schema[strings.ToLower(relA[i])] = wa
		b.Schema[strings.ToLower(relB[i])] = wb
	}
	return nil
}

// descriptorOf maps a live ColumnInfo to the Kind taxonomy of spec.md §3.
// Dialect-specific type-name spellings are handled here so the rest of
// the engine only ever sees the normalized Kind.
func descriptorOf(c ColumnInfo) (TypeDescriptor, error) {
	t := strings.ToLower(c.TypeText)
	switch {
	case strings.Contains(t, "uuid"):
		return TypeDescriptor{Kind: KindUUIDKey}, nil
	case strings.Contains(t, "timestamp") || strings.Contains(t, "datetime"):
		return TypeDescriptor{Kind: KindTimestamp, Precision: c.Precision, WithTimezone: strings.Contains(t, "tz") || strings.Contains(t, "with time zone")}, nil
	case t == "date":
		return TypeDescriptor{Kind: KindDate}, nil
	case strings.Contains(t, "numeric") || strings.Contains(t, "decimal"):
		return TypeDescriptor{Kind: KindDecimal, Precision: c.Precision, Scale: c.Scale}, nil
	case strings.Contains(t, "float") || strings.Contains(t, "double") || strings.Contains(t, "real"):
		return TypeDescriptor{Kind: KindFloat, Precision: c.Precision}, nil
	case strings.Contains(t, "bool"):
		return TypeDescriptor{Kind: KindBoolean}, nil
	case strings.Contains(t, "json"):
		return TypeDescriptor{Kind: KindJSON}, nil
	case strings.HasSuffix(t, "[]") || strings.Contains(t, "array"):
		return TypeDescriptor{Kind: KindArray}, nil
	case strings.Contains(t, "int") || strings.Contains(t, "serial"):
		return TypeDescriptor{Kind: KindIntegralKey}, nil
	case strings.Contains(t, "char") || strings.Contains(t, "text") || strings.Contains(t, "varchar"):
		return TypeDescriptor{Kind: KindTextualKey}, nil
	default:
		return TypeDescriptor{Kind: KindTextualKey}, nil
	}
}
