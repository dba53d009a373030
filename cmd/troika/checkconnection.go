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

// runCheckConnection executes the 'check-connection' subcommand: probe
// whether site is currently reachable.
//
// Usage: troika check-connection <site> [-u user] [-t timeout]
func runCheckConnection(args []string, cfg *config.Config, defaultUser string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("check-connection", flag.ExitOnError)
	user := fs.StringP("user", "u", defaultUser, "User to connect as")
	timeout := fs.IntP("timeout", "t", 0, "Connection timeout in seconds (0 uses the site's default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: troika check-connection <site> [options]

Probe whether site's connection is currently usable.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fs.Usage()
		return 1
	}
	siteName := rest[0]

	ctrl := controller.New(cfg, *user, globals.Dryrun)
	ok, err := ctrl.CheckConnection(siteName, *timeout)
	if err != nil {
		return reportError(err)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "Connection failed")
		return 1
	}
	ui.Success(fmt.Sprintf("%s is reachable", siteName))
	return 0
}
