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

// Package obs is the process-wide logging facade. It wraps
// charmbracelet/log the same way the teacher project does: a package
// variable plus thin Info/Debug/Warn/Error helpers. The engine itself
// never touches this package directly (see engine.Logger) so tests can
// run with a no-op implementation; the CLI wires this one in as the
// default.
package obs

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

var Log = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

func SetLevel(level log.Level) {
	Log.SetLevel(level)
}

func SetOutput(w *os.File) {
	Log.SetOutput(w)
}

func Info(format string, args ...any) {
	Log.Infof(format, args...)
}

func Debug(format string, args ...any) {
	Log.Debugf(format, args...)
}

func Warn(format string, args ...any) {
	Log.Warnf(format, args...)
}

func Error(format string, args ...any) error {
	Log.Errorf(format, args...)
	return fmt.Errorf(format, args...)
}

func Fatal(msg any, args ...any) {
	Log.Fatal(msg, args...)
}

// EngineLogger adapts the package logger to engine.Logger so the core
// never imports this package directly (spec.md §9's "lift global state"
// design note) while the CLI still gets charmbracelet/log output.
type EngineLogger struct{}

func (EngineLogger) Debugf(format string, args ...any) { Log.Debugf(format, args...) }
func (EngineLogger) Infof(format string, args ...any)  { Log.Infof(format, args...) }
func (EngineLogger) Warnf(format string, args ...any)  { Log.Warnf(format, args...) }
func (EngineLogger) Errorf(format string, args ...any) { Log.Errorf(format, args...) }
