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

// Package controller implements the five top-level operations
// (submit, monitor, kill, check_connection, list_sites) and the
// action-context scoped-resource pattern wrapping each of them: build the
// site, run at_startup hooks, run the operation body, then always run
// at_exit hooks, whatever happened in between.
package controller

import (
	"fmt"
	"log/slog"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/hook"
	"github.com/ecmwf/troika/internal/log"
	"github.com/ecmwf/troika/internal/metrics"
	"github.com/ecmwf/troika/internal/semaphore"
	"github.com/ecmwf/troika/internal/site"
)

// defaultConnectTimeout bounds the check_connection probes the controller
// itself runs (group-site member resolution) when no explicit timeout was
// requested on the command line.
const defaultConnectTimeout = 10

// Controller owns one operation invocation end to end: it builds exactly
// one Site (which may itself be a group that resolved to a member), runs
// it through the action-context lifecycle, and tears down its own
// process-wide concurrency slot on exit.
type Controller struct {
	Config *config.Config
	User   string
	Dryrun bool

	// ConnectTimeout bounds check_connection-style probes, including
	// group-site member resolution. Zero means "no timeout" to the
	// underlying Connection.
	ConnectTimeout int
}

// New builds a Controller over an already-loaded configuration.
func New(cfg *config.Config, user string, dryrun bool) *Controller {
	return &Controller{Config: cfg, User: user, Dryrun: dryrun, ConnectTimeout: defaultConnectTimeout}
}

// acquireSlot takes the configured concurrency slot, if any, returning a
// release function that is always safe to call (a no-op when the
// semaphore was never engaged).
func (c *Controller) acquireSlot() (func(), error) {
	if c.Config.ConcurrencyLimit <= 0 {
		return func() {}, nil
	}
	sem, err := semaphore.New(c.User, c.Config.ConcurrencyLimit)
	if err != nil {
		return nil, err
	}
	if err := sem.Acquire(c.Config.ConcurrencyTimeout); err != nil {
		return nil, err
	}
	return func() {
		if err := sem.Release(); err != nil {
			slog.Error("failed to release concurrency slot", "error", err)
		}
	}, nil
}

// buildConnection constructs the Connection a site entry names, local or
// SSH, from its embedded connection-level configuration fields.
func (c *Controller) buildConnection(cfg config.SiteConfig) (connection.Connection, error) {
	switch cfg.Connection {
	case config.ConnectionSSH:
		strict := false
		if cfg.SSHStrictHostKeyChecking != nil {
			strict = *cfg.SSHStrictHostKeyChecking
		}
		verbose := false
		if cfg.SSHVerbose != nil {
			verbose = *cfg.SSHVerbose
		}
		return connection.NewSSHConnection(connection.SSHConfig{
			Host:               cfg.Host,
			User:               cfg.User,
			SSHCommand:         cfg.SSHCommand,
			SCPCommand:         cfg.SCPCommand,
			SSHVerbose:         verbose,
			StrictHostChecking: strict,
			SSHOptions:         cfg.SSHOptions,
			SCPOptions:         cfg.SCPOptions,
		}, c.User), nil
	case config.ConnectionLocal, "":
		return connection.NewLocalConnection(), nil
	default:
		return nil, troikaerrors.NewConfigurationError(
			fmt.Sprintf("unknown connection type %q", cfg.Connection), nil)
	}
}

// buildSite loads name's configuration, constructs its Connection and
// Site, and, for a group site, resolves it to its first reachable member
// by recursing through buildSite again for each candidate.
func (c *Controller) buildSite(name string) (site.Site, config.SiteConfig, error) {
	cfg, err := c.Config.Site(name)
	if err != nil {
		return nil, cfg, err
	}
	conn, err := c.buildConnection(cfg)
	if err != nil {
		return nil, cfg, err
	}
	s, err := site.New(name, cfg, conn, c.User)
	if err != nil {
		return nil, cfg, err
	}
	if gs, ok := s.(*site.GroupSite); ok {
		resolver := func(memberName string) (site.Site, error) {
			member, _, err := c.buildSite(memberName)
			return member, err
		}
		if err := gs.Resolve(resolver, c.ConnectTimeout, c.Dryrun); err != nil {
			return nil, cfg, err
		}
	}
	return s, cfg, nil
}

// connectionOf returns s's underlying Connection for hook dispatch, or
// nil if s does not expose one (no built-in hook currently needs one from
// a site that doesn't).
func connectionOf(s site.Site) connection.Connection {
	if holder, ok := s.(site.ConnectionHolder); ok {
		return holder.Connection()
	}
	return nil
}

func (c *Controller) runAtStartup(cfg config.SiteConfig, s site.Site, action, siteName string) error {
	impls, err := hook.AtStartup.Resolve(cfg.AtStartup)
	if err != nil {
		return err
	}
	conn := connectionOf(s)
	for _, impl := range impls {
		interrupt, err := impl(conn, action, siteName, c.Dryrun)
		if err != nil {
			return err
		}
		if interrupt {
			return troikaerrors.NewRunError(fmt.Sprintf("at_startup hook interrupted %s", action), nil)
		}
	}
	return nil
}

func (c *Controller) runPreSubmit(cfg config.SiteConfig, s site.Site, script, output string) error {
	impls, err := hook.PreSubmit.Resolve(cfg.PreSubmit)
	if err != nil {
		return err
	}
	conn := connectionOf(s)
	for _, impl := range impls {
		if err := impl(conn, script, output, c.Dryrun); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) runPostKill(cfg config.SiteConfig, s site.Site, script, output, jid, cancelStatus string) error {
	impls, err := hook.PostKill.Resolve(cfg.PostKill)
	if err != nil {
		return err
	}
	conn := connectionOf(s)
	for _, impl := range impls {
		if err := impl(conn, script, output, jid, cancelStatus, c.Dryrun); err != nil {
			return err
		}
	}
	return nil
}

// runAtExit runs every configured at_exit hook regardless of the primary
// operation's outcome. A fault here is logged, never returned: spec §4.4
// forbids teardown from overriding the status already decided.
func (c *Controller) runAtExit(cfg config.SiteConfig, s site.Site, action, siteName, output string, sts int, logfile string) {
	impls, err := hook.AtExit.Resolve(cfg.AtExit)
	if err != nil {
		slog.Error("at_exit hook resolution failed", "error", err)
		return
	}
	conn := connectionOf(s)
	for _, impl := range impls {
		if err := impl(conn, action, siteName, output, sts, logfile, c.Dryrun); err != nil {
			slog.Error("at_exit hook failed", "action", action, "site", siteName, "error", err)
		}
	}
}

// runOperation is the action-context skeleton shared by every top-level
// operation: build the site, time the call, run at_startup, run body,
// and unconditionally run at_exit on the way out.
func (c *Controller) runOperation(action, siteName, scriptPath, output string, body func(s site.Site, cfg config.SiteConfig) error) (err error) {
	release, err := c.acquireSlot()
	if err != nil {
		return err
	}
	defer release()

	s, cfg, err := c.buildSite(siteName)
	if err != nil {
		return err
	}

	logfile := log.GetLogfilePath(action, scriptPath)
	timer := metrics.StartTimer(action, s.TypeName())
	defer timer.Stop()

	defer func() {
		sts := 0
		if err != nil {
			sts = 1
		}
		c.runAtExit(cfg, s, action, siteName, output, sts, logfile)
	}()

	if err = c.runAtStartup(cfg, s, action, siteName); err != nil {
		return err
	}
	err = body(s, cfg)
	return err
}
