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

// Kind is the tagged variant over column types, spec.md §3.
type Kind int

const (
	KindIntegralKey Kind = iota
	KindTextualKey
	KindUUIDKey
	KindTimestamp
	KindDate
	KindDecimal
	KindFloat
	KindBoolean
	KindJSON
	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindIntegralKey:
		return "IntegralKey"
	case KindTextualKey:
		return "TextualKey"
	case KindUUIDKey:
		return "UUIDKey"
	case KindTimestamp:
		return "TimestampValue"
	case KindDate:
		return "DateValue"
	case KindDecimal:
		return "DecimalValue"
	case KindFloat:
		return "FloatValue"
	case KindBoolean:
		return "BooleanValue"
	case KindJSON:
		return "JSONValue"
	case KindArray:
		return "ArrayValue"
	case KindStruct:
		return "StructValue"
	default:
		return "Unknown"
	}
}

// IsKey reports whether values of this kind can serve as a bisectable
// key column (spec.md §3 invariant 3).
func (k Kind) IsKey() bool {
	switch k {
	case KindIntegralKey, KindTextualKey, KindUUIDKey:
		return true
	default:
		return false
	}
}

// TypeDescriptor carries whatever the Normalizer needs to emit a
// canonical-text SQL fragment for a column, spec.md §3.
type TypeDescriptor struct {
	Kind Kind

	// Timestamp
	Precision    int // fractional-second digits, or numeric precision for Decimal/Float
	WithTimezone bool

	// Decimal
	Scale int

	// Array / Struct
	Element *TypeDescriptor
	Fields  map[string]*TypeDescriptor
}

// widenPrecision implements the precision-handling rule of spec.md §3:
// when two sides declare the same logical kind with different declared
// precisions, widen both to a common representation whose canonical
// text is identical. For timestamps this means the coarser (lower)
// fractional-second precision; for decimals it means the wider (higher)
// total width and the larger of the two scales.
func widenPrecision(a, b TypeDescriptor) (TypeDescriptor, TypeDescriptor, error) {
	if a.Kind != b.Kind {
		return a, b, SchemaError("incompatible column kinds: %s vs %s", a.Kind, b.Kind)
	}

	switch a.Kind {
	case KindTimestamp:
		p := a.Precision
		if b.Precision < p {
			p = b.Precision
		}
		wa, wb := a, b
		wa.Precision, wb.Precision = p, p
		// A timestamp with no timezone compared against one with a
		// timezone is still comparable after normalization: both sides
		// render in UTC (§4.1), so WithTimezone need not match.
		return wa, wb, nil

	case KindDecimal, KindFloat:
		scale := a.Scale
		if b.Scale > scale {
			scale = b.Scale
		}
		precision := a.Precision
		if b.Precision > precision {
			precision = b.Precision
		}
		wa, wb := a, b
		wa.Scale, wb.Scale = scale, scale
		wa.Precision, wb.Precision = precision, precision
		return wa, wb, nil

	default:
		return a, b, nil
	}
}

// compatibleKinds reports whether two resolved kinds can be compared at all
// after normalization (spec.md §3 invariant 3): both integral, both
// textual, both timestamps, etc. UUID and textual keys normalize to the
// same kind of canonical text and are mutually compatible.
func compatibleKinds(a, b Kind) bool {
	if a == b {
		return true
	}
	textual := func(k Kind) bool { return k == KindTextualKey || k == KindUUIDKey }
	return textual(a) && textual(b)
}
