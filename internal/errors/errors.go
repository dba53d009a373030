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

// Package errors provides the three typed error kinds used throughout
// Troika: configuration, invocation, and run errors.
//
// All three map to exit code 1 (see the CLI dispatcher), but are kept
// distinct so the controller can log them distinctively ("Configuration
// error: ...", "Invocation error: ...", or the run error's message
// verbatim), matching the error taxonomy of the original Troika design.
package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// ExitCode is returned by the CLI dispatcher for any of the three error
// kinds below. Troika never distinguishes exit codes by error kind -- only
// success (0) and failure (1) are user-visible.
const ExitCode = 1

// Kind identifies which of the three error taxonomies an error belongs to.
type Kind int

const (
	// KindConfiguration is raised by invalid or missing configuration:
	// unknown site/connection type, invalid kill_sequence entry, unknown
	// hook name, wrong extra_directives value type, bad unknown_directive
	// mode.
	KindConfiguration Kind = iota

	// KindInvocation is raised by bad command-line arguments or inputs:
	// missing script file, unknown directive under the "fail" policy,
	// malformed -D argument.
	KindInvocation

	// KindRun is raised by operational failures: nonzero exit from a
	// remote command, unreadable JID file, malformed scheduler output,
	// failed abort.
	KindRun
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "Configuration error"
	case KindInvocation:
		return "Invocation error"
	case KindRun:
		return "Run error"
	default:
		return "Error"
	}
}

// TroikaError is the common shape of all three error kinds. It wraps an
// optional underlying error for errors.Is/errors.As compatibility and
// carries an optional Fix hint shown in colored terminal output.
type TroikaError struct {
	Kind Kind
	// Message describes what went wrong.
	Message string
	// Fix is an optional actionable suggestion.
	Fix string
	// Err is an optional wrapped underlying error.
	Err error
}

func (e *TroikaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TroikaError) Unwrap() error { return e.Err }

// NewConfigurationError builds a KindConfiguration TroikaError.
func NewConfigurationError(msg string, err error) *TroikaError {
	return &TroikaError{Kind: KindConfiguration, Message: msg, Err: err}
}

// NewInvocationError builds a KindInvocation TroikaError.
func NewInvocationError(msg string, err error) *TroikaError {
	return &TroikaError{Kind: KindInvocation, Message: msg, Err: err}
}

// NewRunError builds a KindRun TroikaError.
func NewRunError(msg string, err error) *TroikaError {
	return &TroikaError{Kind: KindRun, Message: msg, Err: err}
}

// WithFix attaches an actionable hint and returns the same error for
// chaining: errors.NewRunError(...).WithFix("check the .suberr file")
func (e *TroikaError) WithFix(fix string) *TroikaError {
	e.Fix = fix
	return e
}

var (
	colorKind = color.New(color.FgRed, color.Bold)
	colorFix  = color.New(color.FgGreen)
)

// Format renders the error for terminal display: "<Kind>: <message>"
// followed by an optional "Fix:" line, honoring NO_COLOR.
func (e *TroikaError) Format(noColor bool) string {
	original := color.NoColor
	defer func() { color.NoColor = original }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	out := colorKind.Sprintf("%s: ", e.Kind) + e.Error() + "\n"
	if e.Fix != "" {
		out += colorFix.Sprint("Fix:   ") + e.Fix + "\n"
	}
	return out
}

// AsTroikaError unwraps err to its *TroikaError, if any.
func AsTroikaError(err error) (*TroikaError, bool) {
	var te *TroikaError
	ok := stderrors.As(err, &te)
	return te, ok
}
