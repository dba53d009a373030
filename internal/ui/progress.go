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

package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// ProgressConfig controls whether progress indicators render at all, and
// where they render to. Indicators are suppressed outside a TTY so piped
// or logged output stays clean.
type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
	NoColor bool
}

// NewProgressConfig builds a ProgressConfig from the CLI's verbosity and
// color settings. quiet suppresses indicators outright.
func NewProgressConfig(quiet, noColor bool) ProgressConfig {
	return ProgressConfig{
		Enabled: !quiet && isatty.IsTerminal(os.Stderr.Fd()),
		Writer:  os.Stderr,
		NoColor: noColor,
	}
}

// NewSpinner returns an indeterminate spinner used while waiting on a
// kill-sequence step or a connection probe. When progress is disabled it
// returns a spinner writing to io.Discard so callers can call Describe/Add
// unconditionally without checking cfg.Enabled themselves.
func NewSpinner(cfg ProgressConfig, description string) *progressbar.ProgressBar {
	w := cfg.Writer
	if !cfg.Enabled {
		w = io.Discard
	}
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	}
	if !cfg.NoColor {
		opts = append(opts, progressbar.OptionEnableColorCodes(true))
	}
	return progressbar.NewOptions(-1, opts...)
}

// NewWaitBar returns a bounded progress bar for a kill sequence with a
// known number of signal/wait steps.
func NewWaitBar(cfg ProgressConfig, total int64, description string) *progressbar.ProgressBar {
	w := cfg.Writer
	if !cfg.Enabled {
		w = io.Discard
	}
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65 * 1e6),
	}
	if !cfg.NoColor {
		opts = append(opts, progressbar.OptionEnableColorCodes(true))
	}
	return progressbar.NewOptions64(total, opts...)
}
