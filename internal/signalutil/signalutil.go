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

// Package signalutil provides the small set of conversions shared by every
// site and connection: signal name/number normalisation, boolean parsing of
// loosely-typed YAML config values, exit-code checking, and command
// normalisation.
package signalutil

import (
	"fmt"
	"strings"
	"syscall"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

// names maps a canonical signal number to its SIG* name, covering the
// POSIX signals troika's kill sequences are configured with.
var names = map[int]string{
	int(syscall.SIGHUP):  "SIGHUP",
	int(syscall.SIGINT):  "SIGINT",
	int(syscall.SIGQUIT): "SIGQUIT",
	int(syscall.SIGILL):  "SIGILL",
	int(syscall.SIGTRAP): "SIGTRAP",
	int(syscall.SIGABRT): "SIGABRT",
	int(syscall.SIGBUS):  "SIGBUS",
	int(syscall.SIGFPE):  "SIGFPE",
	int(syscall.SIGKILL): "SIGKILL",
	int(syscall.SIGUSR1): "SIGUSR1",
	int(syscall.SIGSEGV): "SIGSEGV",
	int(syscall.SIGUSR2): "SIGUSR2",
	int(syscall.SIGPIPE): "SIGPIPE",
	int(syscall.SIGALRM): "SIGALRM",
	int(syscall.SIGTERM): "SIGTERM",
}

var numbers = func() map[string]int {
	m := make(map[string]int, len(names))
	for n, name := range names {
		m[name] = n
	}
	return m
}()

// SignalName returns the canonical SIG* name for a signal number.
//
//	SignalName(2)  => "SIGINT"
//	SignalName(9)  => "SIGKILL"
//	SignalName(15) => "SIGTERM"
func SignalName(sig int) (string, error) {
	name, ok := names[sig]
	if !ok {
		return "", fmt.Errorf("unknown signal number %d", sig)
	}
	return name, nil
}

// NormaliseSignal accepts an int, a bare name ("TERM"), a SIG-prefixed name
// ("SIGTERM"), case-insensitively, and returns (number, canonical name).
// Anything else is a configuration error, as kill_sequence entries that fail
// to normalise must be rejected at configuration time, not at kill time.
func NormaliseSignal(value any) (int, string, error) {
	switch v := value.(type) {
	case int:
		name, err := SignalName(v)
		if err != nil {
			return 0, "", troikaerrors.NewConfigurationError(
				fmt.Sprintf("invalid kill_sequence signal %d", v), err)
		}
		return v, name, nil
	case float64:
		return NormaliseSignal(int(v))
	case string:
		upper := strings.ToUpper(strings.TrimSpace(v))
		if !strings.HasPrefix(upper, "SIG") {
			upper = "SIG" + upper
		}
		num, ok := numbers[upper]
		if !ok {
			return 0, "", troikaerrors.NewConfigurationError(
				fmt.Sprintf("invalid kill_sequence signal %q", v), nil)
		}
		return num, upper, nil
	default:
		return 0, "", troikaerrors.NewConfigurationError(
			fmt.Sprintf("invalid kill_sequence signal of type %T", value), nil)
	}
}

// ParseBool implements the full truth table troika's YAML config accepts
// for boolean-typed fields (ssh_verbose, copy_jid, copy_script, exclusive,
// ...): real bools pass through; strings are matched case-insensitively
// against the common yes/no/on/off/true/false/1/0 spellings.
func ParseBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "yes", "y", "true", "t", "on":
			return true, nil
		case "0", "no", "n", "false", "f", "off", "":
			return false, nil
		default:
			return false, fmt.Errorf("cannot parse %q as a boolean", v)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("cannot parse value of type %T as a boolean", value)
	}
}

// CheckRetcode turns a nonzero process exit code into a RunError. what
// labels the failing operation ("Submission", "Kill", "Copy") in the
// resulting message, matching the call sites in every site driver.
func CheckRetcode(retcode int, what string, detail string) error {
	if retcode == 0 {
		return nil
	}
	msg := fmt.Sprintf("%s failed with exit code %d", what, retcode)
	if detail != "" {
		msg += ": " + detail
	}
	return troikaerrors.NewRunError(msg, nil)
}

// CommandAsList normalises a YAML command value (a bare string, split on
// whitespace, or an already-split list) into an argv-style slice. This is
// how sbatch_command/qsub_command/ssh_command config entries become the
// argv prefix for os/exec.
func CommandAsList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(v), nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command list entries must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot interpret %T as a command", value)
	}
}
