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

// Package log configures the process-wide slog logger from the CLI's
// -v/-q counters and optional logfile, mirroring troika's original
// verbosity-to-level table.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// levels is indexed from most to least verbose-suppressing, matching the
// original LOGLEVELS table (CRITICAL..DEBUG). slog has no CRITICAL level,
// so it is folded into a level above Error.
var levels = []slog.Level{
	slog.Level(12), // CRITICAL
	slog.LevelError,
	slog.LevelWarn,
	slog.LevelInfo,
	slog.LevelDebug,
}

// defaultIndex is WARNING's position in levels, the verbosity floor before
// any -v/-q adjustment.
const defaultIndex = 2

// Config configures logging output.
type Config struct {
	// Verbose is the net count of -v minus -q occurrences.
	Verbose int
	// Logfile is an optional path to also log to, always at debug level
	// regardless of console verbosity.
	Logfile string
	// Append selects append mode for Logfile; false truncates.
	Append bool
}

// Configure installs a text handler to stderr at the level derived from
// cfg.Verbose, plus an optional debug-level file handler. It returns a
// closer for the log file, or nil if none was opened.
func Configure(cfg Config) io.Closer {
	idx := defaultIndex + cfg.Verbose
	if idx < 0 {
		idx = 0
	}
	if idx > len(levels)-1 {
		idx = len(levels) - 1
	}
	level := levels[idx]

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	var closer io.Closer
	if cfg.Logfile != "" {
		flag := os.O_CREATE | os.O_WRONLY
		if cfg.Append {
			flag |= os.O_APPEND
		} else {
			flag |= os.O_TRUNC
		}
		f, err := os.OpenFile(cfg.Logfile, flag, 0o644)
		if err != nil {
			slog.Error("cannot open log file", "path", cfg.Logfile, "error", err)
		} else {
			handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
			closer = f
		}
	}

	slog.SetDefault(slog.New(newFanout(handlers)))
	return closer
}

// GetLogfilePath constructs the default per-action log file path
// "<script>.<action>log", or "troika.<action>log" if script is empty.
func GetLogfilePath(action, script string) string {
	base := script
	if base == "" {
		base = "troika"
	}
	return base + fmt.Sprintf(".%slog", action)
}

// fanout dispatches each record to every handler whose level accepts it,
// since slog has no built-in multi-handler.
type fanout struct {
	handlers []slog.Handler
}

func newFanout(handlers []slog.Handler) slog.Handler {
	return &fanout{handlers: handlers}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanout{handlers: next}
}
