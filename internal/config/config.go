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

// Package config loads the structured config file accepted by --conf/--run:
// a set of named database connections plus named runs that select an
// algorithm, tables, and tuning knobs. CLI flags always override values
// loaded here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Databases map[string]DatabaseConfig `yaml:"database"`
	Runs      map[string]RunConfig      `yaml:"run"`

	DebugMode bool `yaml:"debug_mode"`
}

// DatabaseConfig accepts either a bare URI or structured connection params;
// structured params win when both are present.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URI      string `yaml:"uri"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema"`
	Warehouse string `yaml:"warehouse,omitempty"`
	Role      string `yaml:"role,omitempty"`
}

// RunConfig mirrors the CLI surface of spec.md §6 so a --run NAME can supply
// everything the positional/flag arguments would. run.default is inherited
// by every other named run before CLI flags are applied on top.
type RunConfig struct {
	Database1 string `yaml:"database1"`
	Table1    string `yaml:"table1"`
	Database2 string `yaml:"database2"`
	Table2    string `yaml:"table2"`

	KeyColumns   []string `yaml:"key_columns"`
	UpdateColumn string   `yaml:"update_column"`
	Columns      []string `yaml:"columns"`

	Where   string `yaml:"where"`
	MinAge  string `yaml:"min_age"`
	MaxAge  string `yaml:"max_age"`

	Algorithm string `yaml:"algorithm"`

	BisectionFactor    int `yaml:"bisection_factor"`
	BisectionThreshold int `yaml:"bisection_threshold"`

	Materialize        string `yaml:"materialize"`
	AssumeUniqueKey    bool   `yaml:"assume_unique_key"`
	SampleExclusiveRows bool  `yaml:"sample_exclusive_rows"`
	MaterializeAllRows bool   `yaml:"materialize_all_rows"`
	TableWriteLimit    int    `yaml:"table_write_limit"`

	Threads int `yaml:"threads"`
	Limit   int `yaml:"limit"`
}

// Cfg holds the process-wide loaded config, set by Init.
var Cfg *Config

// Load reads and parses path into a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &c, nil
}

// Init loads the config and assigns it to the package variable.
func Init(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	Cfg = c
	return nil
}

// ResolveRun returns the named run merged over run.default, if present.
func (c *Config) ResolveRun(name string) (RunConfig, error) {
	base := c.Runs["default"]
	if name == "" || name == "default" {
		return base, nil
	}
	run, ok := c.Runs[name]
	if !ok {
		return RunConfig{}, fmt.Errorf("run %q not found in config", name)
	}
	return mergeRun(base, run), nil
}

// mergeRun overlays override's non-zero fields onto base.
func mergeRun(base, override RunConfig) RunConfig {
	merged := base
	if override.Database1 != "" {
		merged.Database1 = override.Database1
	}
	if override.Table1 != "" {
		merged.Table1 = override.Table1
	}
	if override.Database2 != "" {
		merged.Database2 = override.Database2
	}
	if override.Table2 != "" {
		merged.Table2 = override.Table2
	}
	if len(override.KeyColumns) > 0 {
		merged.KeyColumns = override.KeyColumns
	}
	if override.UpdateColumn != "" {
		merged.UpdateColumn = override.UpdateColumn
	}
	if len(override.Columns) > 0 {
		merged.Columns = override.Columns
	}
	if override.Where != "" {
		merged.Where = override.Where
	}
	if override.MinAge != "" {
		merged.MinAge = override.MinAge
	}
	if override.MaxAge != "" {
		merged.MaxAge = override.MaxAge
	}
	if override.Algorithm != "" {
		merged.Algorithm = override.Algorithm
	}
	if override.BisectionFactor != 0 {
		merged.BisectionFactor = override.BisectionFactor
	}
	if override.BisectionThreshold != 0 {
		merged.BisectionThreshold = override.BisectionThreshold
	}
	if override.Materialize != "" {
		merged.Materialize = override.Materialize
	}
	if override.TableWriteLimit != 0 {
		merged.TableWriteLimit = override.TableWriteLimit
	}
	if override.Threads != 0 {
		merged.Threads = override.Threads
	}
	if override.Limit != 0 {
		merged.Limit = override.Limit
	}
	merged.AssumeUniqueKey = merged.AssumeUniqueKey || override.AssumeUniqueKey
	merged.SampleExclusiveRows = merged.SampleExclusiveRows || override.SampleExclusiveRows
	merged.MaterializeAllRows = merged.MaterializeAllRows || override.MaterializeAllRows
	return merged
}
