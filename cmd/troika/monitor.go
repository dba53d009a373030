// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/controller"
	"github.com/ecmwf/troika/internal/ui"
)

// runMonitor executes the 'monitor' subcommand: query a job's current
// status and write the raw response to <script>.stat.
//
// Usage: troika monitor <site> <script> [-u user] [-o output] [-j jobid]
func runMonitor(args []string, cfg *config.Config, defaultUser string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	user := fs.StringP("user", "u", defaultUser, "User the job runs as")
	output := fs.StringP("output", "o", "", "Output file path")
	jobid := fs.StringP("jobid", "j", "", "Job id; defaults to the one recorded in <script>.jid")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: troika monitor <site> <script> [options]

Query site for jobid's current status, writing the raw response to
<script>.stat.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return 1
	}
	siteName, scriptPath := rest[0], rest[1]

	ctrl := controller.New(cfg, *user, globals.Dryrun)
	if err := ctrl.Monitor(siteName, scriptPath, *output, *jobid); err != nil {
		return reportError(err)
	}
	ui.Success(fmt.Sprintf("status written to %s.stat", scriptPath))
	return 0
}
