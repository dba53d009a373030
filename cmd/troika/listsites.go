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

// runListSites executes the 'list-sites' subcommand: enumerate the sites
// named in the configuration. It loads its own configuration rather than
// reusing main's, since list-sites is useful even with no current user
// context.
//
// Usage: troika list-sites
func runListSites(args []string, configPath string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("list-sites", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: troika list-sites\n\nList the sites named in the configuration.\n")
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return reportError(err)
	}

	ctrl := controller.New(cfg, "", globals.Dryrun)
	sites := ctrl.ListSites()
	if len(sites) == 0 {
		fmt.Println("No sites configured")
		return 0
	}

	ui.Header("Registered sites")
	for _, s := range sites {
		fmt.Printf("  %-20s %-10s %s\n", s.Name, s.Type, ui.DimText(s.Connection))
	}
	return 0
}
