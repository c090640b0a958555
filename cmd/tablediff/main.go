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

package main

import (
	"os"

	"github.com/tablediff/tablediff/internal/clicmd"
	"github.com/tablediff/tablediff/internal/obs"
)

func main() {
	app := clicmd.SetupCLI()
	err := app.Run(os.Args)
	if err != nil {
		obs.Error("%v", err)
	}
}
