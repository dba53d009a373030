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
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/controller"
	"github.com/ecmwf/troika/internal/ui"
)

// runKill executes the 'kill' subcommand: cancel a running job, stepping
// through the site's configured signal sequence.
//
// Usage: troika kill <site> <script> [-u user] [-o output] [-j jobid]
func runKill(args []string, cfg *config.Config, defaultUser string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("kill", flag.ExitOnError)
	user := fs.StringP("user", "u", defaultUser, "User the job runs as")
	output := fs.StringP("output", "o", "", "Output file path")
	jobid := fs.StringP("jobid", "j", "", "Job id; defaults to the one recorded in <script>.jid")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: troika kill <site> <script> [options]

Cancel jobid on site, stepping through the site's configured kill
sequence until the job is confirmed gone.

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
	result, err := ctrl.Kill(siteName, scriptPath, *output, *jobid)
	if err != nil {
		return reportError(err)
	}
	ui.Success(fmt.Sprintf("job %s %s", result.Jid, strings.ToLower(string(result.Status))))
	return 0
}
