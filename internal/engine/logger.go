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

// Logger is the narrow surface the core needs for progress and
// diagnostic output. Per the "lift global state into an injectable
// object" design note (spec.md §9), the core never reaches for a package
// logger directly; callers (internal/clicmd) wire in whatever concrete
// logger they want, normally internal/obs's charmbracelet/log wrapper.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything; it's the default when a caller (or a
// test) doesn't supply one.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
