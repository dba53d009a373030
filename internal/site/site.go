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

// Package site implements the per-batch-system drivers: direct execution,
// PBS, SGE, Slurm, group (failover proxy), and trimurti (external helper).
// Each combines a Connection with a directive translation table and knows
// how to submit, monitor, and kill a job on its target scheduler.
package site

import (
	"fmt"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
)

// KillStatus is the closed tag set a kill operation resolves to.
type KillStatus string

const (
	Cancelled  KillStatus = "CANCELLED"
	Killed     KillStatus = "KILLED"
	Terminated KillStatus = "TERMINATED"
	Vanished   KillStatus = "VANISHED"
)

// Site is the contract every batch-system driver implements.
type Site interface {
	// Submit hands the already-generated script to the scheduler and
	// persists its job id to <script>.jid.
	Submit(script, user, output string, dryrun bool) error

	// Monitor queries the scheduler for jid's status and writes the raw
	// response to <script>.stat.
	Monitor(script, user, output, jid string, dryrun bool) error

	// Kill cancels jid, returning the jid actually used (in case it had
	// to be recovered from the jidfile) and the resulting KillStatus.
	Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error)

	// CheckConnection probes whether the site's connection is usable.
	CheckConnection(timeout int, dryrun bool) (bool, error)

	// NativeParser returns the parser for this site's native directive
	// syntax, or nil if it has none (e.g. trimurti).
	NativeParser() parser.Parser

	// DirectiveTranslation returns the directive prefix and translate
	// table this site's generator should use, merging class defaults with
	// any per-site configuration override.
	DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc)

	// TypeName identifies the site's type, e.g. "slurm".
	TypeName() string
}

// ConnectionHolder is implemented by sites that can hand back their
// underlying Connection, for callers outside the Site contract proper
// (the controller's hook dispatch, which takes a Connection argument).
type ConnectionHolder interface {
	Connection() connection.Connection
}

// Constructor builds a Site from its configuration and connection.
type Constructor func(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error)

var registry = map[string]Constructor{}

// Register adds a constructor for the given type_name. Called from each
// driver's init().
func Register(typeName string, ctor Constructor) {
	registry[typeName] = ctor
}

// New builds the Site named by cfg.Type, looking up its constructor in
// the static registry.
func New(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
	ctor, ok := registry[cfg.Type]
	if !ok {
		return nil, troikaerrors.NewConfigurationError(fmt.Sprintf("unknown site type %q for site %q", cfg.Type, name), nil)
	}
	return ctor(name, cfg, conn, user)
}
