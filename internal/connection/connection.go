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

// Package connection abstracts how a command gets run: directly on the
// local host, or over SSH on a remote one.
package connection

import (
	"io"
)

// pipeSentinel is a zero-size type whose only instance, PIPE, is used as a
// marker value telling Execute to return a connected stream instead of
// wiring stdin/stdout/stderr to a file or /dev/null.
type pipeSentinel struct{}

// PIPE requests that Execute return a pipe for the corresponding stream,
// mirroring the sentinel of the same name in
// original_source/src/troika/connection.py.
var PIPE = &pipeSentinel{}

// ExecOptions configures a call to Connection.Execute.
type ExecOptions struct {
	// Stdin, Stdout, Stderr select where the child's standard streams go.
	// nil means /dev/null (stderr defaults to following stdout); PIPE asks
	// for an *os.File/io.ReadCloser back via the returned Process; any
	// other io.Writer/io.Reader is wired directly.
	Stdin  any
	Stdout any
	Stderr any

	// Detach starts the command in its own session so it survives the
	// parent exiting.
	Detach bool

	// Env holds extra environment variables layered on top of the
	// process's own environment (local) or passed as K=V prefixes to the
	// remote command (SSH).
	Env map[string]string

	// Cwd overrides the working directory, when supported.
	Cwd string

	// Dryrun logs the command that would run instead of running it.
	Dryrun bool
}

// Process is the handle returned by Execute for a command that was
// actually started (Dryrun false).
type Process interface {
	// Wait blocks until the command exits and returns its exit code.
	Wait() (int, error)

	// Stdout/Stderr return the read end of a PIPE-requested stream, or nil
	// if that stream was not requested as a pipe.
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser
	Stdin() io.WriteCloser

	// PID returns the local process ID driving this command: the ssh or
	// scp client's PID for a remote connection, not the remote process.
	PID() int
}

// Connection runs commands and moves files on a compute site, either on
// the local host or on a remote one reached over SSH.
type Connection interface {
	// Execute runs command (argv[0] plus arguments) and returns a handle
	// to it, or nil if opts.Dryrun is set.
	Execute(command []string, opts ExecOptions) (Process, error)

	// SendFile copies the local file src to dst on this connection's host.
	SendFile(src, dst string, dryrun bool) error

	// GetFile copies the file src on this connection's host to the local
	// path dst.
	GetFile(src, dst string, dryrun bool) error

	// CheckStatus reports whether the connection can currently execute
	// commands, running a trivial "true" command and checking its exit
	// status.
	CheckStatus(dryrun bool) (bool, error)

	// IsLocal reports whether local paths are valid through this
	// connection.
	IsLocal() bool

	// GetParent returns the connection that can be used to manage
	// processes started through this one: itself for a local connection,
	// the local connection for SSH.
	GetParent() Connection

	// String returns a human-readable description, e.g. for logging.
	String() string
}
