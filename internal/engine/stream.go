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
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/tablediff/tablediff/pkg/types"
)

// Stream is the lazy diff-result iterator handed back to CLI and
// programmatic callers (spec.md §4.9): events arrive as segments finish,
// and a terminal Summary is only available once the stream is drained,
// since per-column diff counts and exclusive counts accumulate across
// the whole run.
type Stream struct {
	events chan types.DiffEvent
	done   chan struct{}

	mu      sync.Mutex
	summary types.Summary

	runtime  *Runtime
	progress *mpb.Progress
	bar      *mpb.Bar
}

// newStream starts a run's Summary clock and, when totalRows is known
// up front (RunHashDiff passes the larger side's row count, RunJoinDiff
// the left side's), a progress bar styled after
// the teacher's "Hashing ranges:" bar in internal/core/table_diff.go.
// totalRows <= 0 means the total can't be known cheaply (e.g. the run
// is cancelled before its first checksum), and no bar is shown.
func newStream(algorithm string, runtime *Runtime, totalRows int64) *Stream {
	s := &Stream{
		events:  make(chan types.DiffEvent, 256),
		done:    make(chan struct{}),
		runtime: runtime,
		summary: types.Summary{Algorithm: algorithm, StartTime: now()},
	}
	if totalRows > 0 {
		s.progress = mpb.New()
		s.bar = s.progress.AddBar(totalRows,
			mpb.PrependDecorators(
				decor.Name(algorithm+": ", decor.WC{W: 18}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Elapsed(decor.ET_STYLE_GO),
				decor.Name(" | "),
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
			),
		)
	}
	return s
}

// Events returns the channel of diff events; it closes once the run
// finishes (successfully, by limit, or by error).
func (s *Stream) Events() <-chan types.DiffEvent { return s.events }

// Done reports when the run has finished and Summary is safe to read.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Summary returns the terminal statistics block; only meaningful after
// Done is closed.
func (s *Stream) Summary() types.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Stream) emit(ev types.DiffEvent) {
	s.mu.Lock()
	switch ev.Sign {
	case types.Plus:
		s.summary.RowsDiff++
		s.summary.PlusCount++
	case types.Minus:
		s.summary.RowsDiff++
		s.summary.MinusCount++
	}
	s.mu.Unlock()
	select {
	case s.events <- ev:
	case <-s.runtime.Context().Done():
	}
}

func (s *Stream) addChecked(n int64) {
	s.mu.Lock()
	s.summary.RowsChecked += n
	s.mu.Unlock()
	if s.bar != nil {
		s.bar.IncrBy(int(n))
	}
}

func (s *Stream) finish(incomplete bool) {
	s.mu.Lock()
	s.summary.EndTime = now()
	s.summary.Elapsed = s.summary.EndTime.Sub(s.summary.StartTime)
	s.summary.Incomplete = incomplete
	s.mu.Unlock()
	if s.bar != nil {
		// Abort unconditionally: a cancelled or errored run may never reach
		// the bar's total, and progress.Wait() would hang waiting for it.
		s.bar.Abort(false)
		s.progress.Wait()
	}
	close(s.events)
	close(s.done)
}

// now is the single non-deterministic call isolated to this file so
// tests can substitute a fixed clock by constructing a Summary directly
// instead of going through newStream/finish.
func now() time.Time { return time.Now() }
