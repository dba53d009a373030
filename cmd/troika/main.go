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

// Package main implements the troika CLI for submitting, monitoring, and
// killing batch jobs across heterogeneous compute sites.
//
// Usage:
//
//	troika submit site script -o output [-u user] [-D name=value]...
//	troika monitor site script [-u user] [-o output] [-j jobid]
//	troika kill site script [-u user] [-o output] [-j jobid]
//	troika check-connection site [-u user] [-t timeout]
//	troika list-sites
package main

import (
	"fmt"
	"os"
	"os/user"

	flag "github.com/spf13/pflag"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/log"
	"github.com/ecmwf/troika/internal/ui"
)

// version is set via ldflags during build.
var version = "dev"

// GlobalFlags holds the flags recognised before the subcommand name.
type GlobalFlags struct {
	Verbose   int
	Logfile   string
	AppendLog bool
	Dryrun    bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (repeatable)")
		quiet       = flag.CountP("quiet", "q", "Decrease verbosity (repeatable)")
		logfile     = flag.StringP("logfile", "l", "", "Also log to this file, at debug level")
		appendLog   = flag.BoolP("append-log", "A", false, "Append to --logfile instead of truncating")
		configPath  = flag.StringP("config", "c", "", "Path to troika.yml (default: $TROIKA_CONFIG_FILE or ./etc/troika.yml)")
		dryrun      = flag.BoolP("dryrun", "n", false, "Print what would be done without doing it")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Troika submits, monitors, and kills batch jobs across heterogeneous
compute sites: local execution, SSH-reachable PBS/SGE/Slurm hosts, and
sites that proxy to a group or an external helper.

Usage:
  troika <command> [options]

Commands:
  submit             Translate and submit a script to a site
  monitor            Query a job's current status
  kill               Cancel a running job
  check-connection   Probe whether a site is reachable
  list-sites         List the sites named in the configuration

Global Options:
  -V, --version       Show version and exit
  -v, --verbose       Increase verbosity (repeatable)
  -q, --quiet         Decrease verbosity (repeatable)
  -l, --logfile PATH  Also log to this file, at debug level
  -A, --append-log    Append to --logfile instead of truncating
  -c, --config PATH   Path to troika.yml
  -n, --dryrun        Print what would be done without doing it

For detailed command help: troika <command> --help
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("troika version %s\n", version)
		os.Exit(0)
	}

	globals := GlobalFlags{
		Verbose:   *verbose - *quiet,
		Logfile:   *logfile,
		AppendLog: *appendLog,
		Dryrun:    *dryrun,
	}

	if closer := log.Configure(log.Config{Verbose: globals.Verbose, Logfile: globals.Logfile, Append: globals.AppendLog}); closer != nil {
		defer closer.Close()
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	if command == "list-sites" {
		os.Exit(runListSites(cmdArgs, *configPath, globals))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.Error(fmt.Sprintf("Configuration error: %v", err))
		os.Exit(1)
	}

	currentUser := ""
	if u, err := user.Current(); err == nil {
		currentUser = u.Username
	}

	switch command {
	case "submit":
		os.Exit(runSubmit(cmdArgs, cfg, currentUser, globals))
	case "monitor":
		os.Exit(runMonitor(cmdArgs, cfg, currentUser, globals))
	case "kill":
		os.Exit(runKill(cmdArgs, cfg, currentUser, globals))
	case "check-connection":
		os.Exit(runCheckConnection(cmdArgs, cfg, currentUser, globals))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
