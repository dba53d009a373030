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

package connection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ecmwf/troika/internal/signalutil"
)

// SSHConnection runs commands on a remote host by shelling out to the
// local ssh/scp client, mirroring
// original_source/src/troika/connections/ssh.py.
type SSHConnection struct {
	parent     *LocalConnection
	ssh        string
	scp        string
	verbose    bool
	host       string
	user       string
	strict     bool
	sshOptions []string
	scpOptions []string
}

// SSHConfig holds the subset of a site's YAML configuration SSHConnection
// needs.
type SSHConfig struct {
	Host               string
	User               string
	SSHCommand         string
	SCPCommand         string
	SSHVerbose         bool
	StrictHostChecking bool
	SSHOptions         []string
	SCPOptions         []string
}

// NewSSHConnection builds a connection to cfg.Host, defaulting the ssh/scp
// client names and verbosity the way the Python SSHConnection.__init__
// does.
func NewSSHConnection(cfg SSHConfig, user string) *SSHConnection {
	ssh := cfg.SSHCommand
	if ssh == "" {
		ssh = "ssh"
	}
	scp := cfg.SCPCommand
	if scp == "" {
		scp = "scp"
	}
	if user == "" {
		user = cfg.User
	}
	return &SSHConnection{
		parent:     NewLocalConnection(),
		ssh:        ssh,
		scp:        scp,
		verbose:    cfg.SSHVerbose,
		host:       cfg.Host,
		user:       user,
		strict:     cfg.StrictHostChecking,
		sshOptions: cfg.SSHOptions,
		scpOptions: cfg.SCPOptions,
	}
}

func (c *SSHConnection) String() string {
	return fmt.Sprintf("SSHConnection(host=%q, user=%q)", c.host, c.user)
}

func (c *SSHConnection) IsLocal() bool { return false }

func (c *SSHConnection) GetParent() Connection { return c.parent }

func (c *SSHConnection) sshArgs() []string {
	args := []string{c.ssh}
	if c.verbose {
		args = append(args, "-v")
	}
	if c.strict {
		args = append(args, "-o", "StrictHostKeyChecking=yes")
	} else {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}
	args = append(args, c.sshOptions...)
	if c.user != "" {
		args = append(args, "-l", c.user)
	}
	args = append(args, c.host)
	return args
}

func (c *SSHConnection) Execute(command []string, opts ExecOptions) (Process, error) {
	args := c.sshArgs()

	if len(opts.Env) > 0 {
		names := make([]string, 0, len(opts.Env))
		for k := range opts.Env {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			args = append(args, fmt.Sprintf("%s=%s", shellQuote(k), shellQuote(opts.Env[k])))
		}
	}
	for _, arg := range command {
		args = append(args, shellQuote(arg))
	}

	remoteOpts := opts
	remoteOpts.Env = nil
	remoteOpts.Cwd = ""
	return c.parent.Execute(args, remoteOpts)
}

func (c *SSHConnection) SendFile(src, dst string, dryrun bool) error {
	target := fmt.Sprintf("%s:%s", c.host, dst)
	if c.user != "" {
		target = fmt.Sprintf("%s@%s:%s", c.user, c.host, dst)
	}
	return c.scpCopy([]string{src, target}, dryrun)
}

func (c *SSHConnection) GetFile(src, dst string, dryrun bool) error {
	source := fmt.Sprintf("%s:%s", c.host, src)
	if c.user != "" {
		source = fmt.Sprintf("%s@%s:%s", c.user, c.host, src)
	}
	return c.scpCopy([]string{source, dst}, dryrun)
}

func (c *SSHConnection) scpCopy(endpoints []string, dryrun bool) error {
	args := []string{c.scp, "-v"}
	if c.strict {
		args = append(args, "-o", "StrictHostKeyChecking=yes")
	} else {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}
	args = append(args, c.scpOptions...)
	args = append(args, endpoints...)
	proc, err := c.parent.Execute(args, ExecOptions{Dryrun: dryrun})
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	code, err := proc.Wait()
	if err != nil {
		return err
	}
	return signalutil.CheckRetcode(code, "copy", "")
}

func (c *SSHConnection) CheckStatus(dryrun bool) (bool, error) {
	return checkStatus(c, dryrun)
}

// shellQuote renders s safe for inclusion as a single POSIX shell word,
// the Go equivalent of Python's shlex.quote: wrap in single quotes,
// escaping any embedded single quote as '\''.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || strings.ContainsRune("@%_+=:,./-", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
