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

// runSubmit executes the 'submit' subcommand: translate script for site
// and hand it to the scheduler.
//
// Usage: troika submit <site> <script> -o output [-u user] [-D name=value]...
func runSubmit(args []string, cfg *config.Config, defaultUser string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	user := fs.StringP("user", "u", defaultUser, "User to submit as")
	output := fs.StringP("output", "o", "", "Output file path (required)")
	var overrides []string
	fs.StringArrayVarP(&overrides, "define", "D", nil, "Directive override, name=value (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: troika submit <site> <script> -o output [options]

Parse, translate, and submit script to site, then persist its job id to
<script>.jid.

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
	if *output == "" {
		fmt.Fprintln(os.Stderr, "submit: -o/--output is required")
		return 1
	}
	siteName, scriptPath := rest[0], rest[1]

	ctrl := controller.New(cfg, *user, globals.Dryrun)
	if err := ctrl.Submit(siteName, scriptPath, *output, overrides); err != nil {
		return reportError(err)
	}
	ui.Success(fmt.Sprintf("submitted %s to %s", scriptPath, siteName))
	return 0
}
