// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hook

import "github.com/ecmwf/troika/internal/connection"

// AtStartupFunc runs before an operation begins. Returning interrupt=true
// aborts the operation with a non-zero status before it starts.
type AtStartupFunc func(conn connection.Connection, action, siteName string, dryrun bool) (interrupt bool, err error)

// PreSubmitFunc runs just before a script is handed to the site's submit
// command, e.g. to create the output directory.
type PreSubmitFunc func(conn connection.Connection, script, output string, dryrun bool) error

// PostKillFunc runs after a kill status has been decided, e.g. to notify
// an external workflow manager that the job will not complete.
type PostKillFunc func(conn connection.Connection, script, output, jid, cancelStatus string, dryrun bool) error

// AtExitFunc runs on every exit path of an operation, success or failure.
// A fault here is logged but never changes the status already decided.
type AtExitFunc func(conn connection.Connection, action, siteName, output string, sts int, logfile string, dryrun bool) error

// AtStartup, PreSubmit, PostKill, and AtExit are the four static hook
// point registries, populated by built-in implementations at init() and
// by sites registering any custom implementations they need.
var (
	AtStartup = NewRegistry[AtStartupFunc]()
	PreSubmit = NewRegistry[PreSubmitFunc]()
	PostKill  = NewRegistry[PostKillFunc]()
	AtExit    = NewRegistry[AtExitFunc]()
)
