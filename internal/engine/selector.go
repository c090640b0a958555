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

import "context"

// Algorithm names accepted by the Algorithm Selector (spec.md §6).
const (
	AlgorithmAuto     = "auto"
	AlgorithmHashDiff = "hashdiff"
	AlgorithmJoinDiff = "joindiff"
)

// RunOptions is the union of both algorithms' options, resolved down to
// whichever one the Algorithm Selector picks.
type RunOptions struct {
	Algorithm string

	HashDiffOptions
	JoinDiffOptions

	Segments int // JoinDiff pre-sharding, ignored by HashDiff
}

// Select runs left against right using the requested algorithm, or
// picks one automatically (spec.md §4.4): same database and dialect
// supports FULL OUTER JOIN
// chooses JoinDiff; otherwise HashDiff, since it's the only algorithm
// that works across a network boundary between two distinct engines.
func Select(ctx context.Context, left, right *TableSegment, opts RunOptions) (*Stream, error) {
	algo := opts.Algorithm
	if algo == "" {
		algo = AlgorithmAuto
	}

	if algo == AlgorithmAuto {
		if left.Adapter.CredentialsFingerprint() == right.Adapter.CredentialsFingerprint() &&
			left.Adapter.SupportsFullOuterJoin() {
			algo = AlgorithmJoinDiff
		} else {
			algo = AlgorithmHashDiff
		}
	}

	switch algo {
	case AlgorithmHashDiff:
		return RunHashDiff(ctx, left, right, opts.HashDiffOptions)
	case AlgorithmJoinDiff:
		return RunJoinDiff(ctx, left, right, opts.Segments, opts.JoinDiffOptions)
	default:
		return nil, ConfigError("unknown algorithm %q", algo)
	}
}
