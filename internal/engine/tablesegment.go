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
	"fmt"
	"time"
)

// TableSegment is the logical table reference a caller compares: one side
// of a diff, scoped by key bounds, update-column age, and an opaque
// where predicate (spec.md §3, §4.10).
type TableSegment struct {
	Adapter Adapter
	Path    []string

	KeyColumns   []string
	UpdateColumn string
	ExtraColumns []string // may include '%' wildcards, expanded by the Schema Binder

	MinKey, MaxKey any // inclusive-min, exclusive-max; nil means unbounded
	MinUpdate, MaxUpdate *time.Time

	WherePredicate string

	AssumeUniqueKey bool
	CaseSensitive   bool

	// Schema is populated by the Schema Binder (BindSchema) before any
	// work starts; nil beforehand.
	Schema map[string]TypeDescriptor
}

// RelevantColumns is the deduplicated column list the checksum fold and
// the local row fetch compare: key columns, then the update column (if
// not already a key), then the extras not already listed (spec.md §9 open
// question 2: the update column must not be double-counted when the
// caller also names it explicitly in ExtraColumns).
func (t *TableSegment) RelevantColumns() []string {
	seen := make(map[string]bool, len(t.KeyColumns)+len(t.ExtraColumns)+1)
	var cols []string
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		cols = append(cols, c)
	}
	for _, k := range t.KeyColumns {
		add(k)
	}
	add(t.UpdateColumn)
	for _, c := range t.ExtraColumns {
		add(c)
	}
	return cols
}

// Validate checks that the segment has at least one key column and a
// non-empty path; it does not compare MinKey with MaxKey. Invariants 1
// and 3 of spec.md §3 are enforced by the Schema Binder once column types
// are known.
func (t *TableSegment) Validate() error {
	if len(t.KeyColumns) == 0 {
		return ConfigError("table segment for %v has no key columns", t.Path)
	}
	if len(t.Path) == 0 {
		return ConfigError("table segment has an empty path")
	}
	return nil
}

// clone returns a shallow copy suitable for narrowing key bounds; the
// Schema map is shared (segments never mutate it once bound).
func (t *TableSegment) clone() *TableSegment {
	cp := *t
	cp.KeyColumns = append([]string(nil), t.KeyColumns...)
	cp.ExtraColumns = append([]string(nil), t.ExtraColumns...)
	return &cp
}

// WithKeyBounds returns a narrowed copy of the segment; min is inclusive,
// max is exclusive, matching spec.md §3's key_bounds semantics.
func (t *TableSegment) WithKeyBounds(min, max any) *TableSegment {
	cp := t.clone()
	cp.MinKey = min
	cp.MaxKey = max
	return cp
}

func (t *TableSegment) String() string {
	return fmt.Sprintf("%s[%v,%v)", t.Adapter.QualifyPath(t.Path), t.MinKey, t.MaxKey)
}
