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

// Package config loads and resolves troika's YAML configuration: a map of
// named sites, each naming a connection and carrying its own site-type and
// core-level fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"gopkg.in/yaml.v3"
)

// envConfigFile is the environment variable giving the default
// configuration path, consulted when -c/--config is not passed.
const envConfigFile = "TROIKA_CONFIG_FILE"

// envMaxScriptBytes overrides MaxScriptBytes, the submit-time size guard
// against mistakenly submitting a non-script file (e.g. a core dump or a
// data file with a #! that confuses the shebang parser).
const envMaxScriptBytes = "TROIKA_MAX_SCRIPT_BYTES"

// DefaultMaxScriptBytes is used when TROIKA_MAX_SCRIPT_BYTES is unset.
const DefaultMaxScriptBytes = 64 << 20

// siblingConfigName is the relative path probed in the current working
// directory and its parent directories when no explicit config is given.
const siblingConfigName = "etc/troika.yml"

// Config is the root of a troika.yml configuration file.
type Config struct {
	Sites map[string]SiteConfig `yaml:"sites"`

	// ConcurrencyLimit enables the process-wide semaphore of spec §5 when
	// greater than zero: at most this many troika invocations for the same
	// user may run a site operation concurrently. Zero (the default)
	// disables the semaphore entirely.
	ConcurrencyLimit int `yaml:"concurrency_limit,omitempty"`

	// ConcurrencyTimeout mirrors Semaphore.Acquire's timeout argument: nil
	// blocks indefinitely, 0 fails fast, a positive value waits that many
	// seconds before giving up.
	ConcurrencyTimeout *int `yaml:"concurrency_timeout,omitempty"`
}

// SiteConfig describes one named entry under `sites:`. Fields recognised
// by the core are named explicitly; everything else (site-type-specific
// command paths, connection fields) is held in Extra and interpreted by
// the relevant site/connection constructor.
type SiteConfig struct {
	Type       string         `yaml:"type"`
	Connection ConnectionType `yaml:"connection"`

	DefaultShebang   string         `yaml:"default_shebang,omitempty"`
	UnknownDirective string         `yaml:"unknown_directive,omitempty"`
	KillSequence     []any          `yaml:"kill_sequence,omitempty"`
	ExtraDirectives  map[string]any `yaml:"extra_directives,omitempty"`
	DirectivePrefix  string         `yaml:"directive_prefix,omitempty"`
	PmkdirCommand    any            `yaml:"pmkdir_command,omitempty"`
	CopyScript       *bool          `yaml:"copy_script,omitempty"`
	CopyJid          *bool          `yaml:"copy_jid,omitempty"`

	AtStartup []string `yaml:"at_startup,omitempty"`
	PreSubmit []string `yaml:"pre_submit,omitempty"`
	PostKill  []string `yaml:"post_kill,omitempty"`
	AtExit    []string `yaml:"at_exit,omitempty"`

	// Group site only.
	Sites []string `yaml:"sites,omitempty"`

	// Trimurti site only.
	Helper string `yaml:"helper,omitempty"`

	// ConnectionConfig mirrors Connection-level keys when a site embeds
	// its connection settings directly rather than referencing a shared
	// connection block.
	Host                     string   `yaml:"host,omitempty"`
	User                     string   `yaml:"user,omitempty"`
	SSHCommand               string   `yaml:"ssh_command,omitempty"`
	SCPCommand               string   `yaml:"scp_command,omitempty"`
	SSHOptions               []string `yaml:"ssh_options,omitempty"`
	SCPOptions               []string `yaml:"scp_options,omitempty"`
	SSHVerbose               *bool    `yaml:"ssh_verbose,omitempty"`
	SSHStrictHostKeyChecking *bool    `yaml:"ssh_strict_host_key_checking,omitempty"`

	// Extra holds any remaining site-type-specific keys (sbatch_command,
	// qsub_command, directive_translate overrides, ...) for the site
	// constructor to pick through directly.
	Extra map[string]any `yaml:",inline"`
}

// ConnectionType is the `connection:` field of a site entry.
type ConnectionType string

const (
	ConnectionLocal ConnectionType = "local"
	ConnectionSSH   ConnectionType = "ssh"
)

// MaxScriptBytes returns the configured submit-time script size guard,
// honoring TROIKA_MAX_SCRIPT_BYTES.
func MaxScriptBytes() int {
	if v := os.Getenv(envMaxScriptBytes); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxScriptBytes
}

// Load reads and parses a troika.yml configuration file. If path is empty,
// it consults TROIKA_CONFIG_FILE, then searches sibling etc/troika.yml
// paths starting from the current directory upward.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path == "" {
		var err error
		path, err = findSiblingConfig()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, troikaerrors.NewConfigurationError(
			fmt.Sprintf("cannot read configuration file %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, troikaerrors.NewConfigurationError(
			fmt.Sprintf("invalid configuration file %s", path), err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return troikaerrors.NewConfigurationError("cannot encode configuration", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return troikaerrors.NewConfigurationError(
				fmt.Sprintf("cannot create configuration directory %s", dir), err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return troikaerrors.NewConfigurationError(
			fmt.Sprintf("cannot write configuration file %s", path), err)
	}
	return nil
}

// findSiblingConfig walks from the current directory upward looking for
// etc/troika.yml, mirroring the auxiliary discovery named in spec §6.
func findSiblingConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", troikaerrors.NewConfigurationError("cannot determine working directory", err)
	}

	for {
		candidate := filepath.Join(dir, siblingConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", troikaerrors.NewConfigurationError(
		fmt.Sprintf("no configuration file found: set %s or place one at ./%s", envConfigFile, siblingConfigName),
		nil)
}

// Site looks up a named site entry, returning a configuration error if it
// does not exist.
func (c *Config) Site(name string) (SiteConfig, error) {
	sc, ok := c.Sites[name]
	if !ok {
		return SiteConfig{}, troikaerrors.NewConfigurationError(
			fmt.Sprintf("unknown site %q", name), nil)
	}
	return sc, nil
}
