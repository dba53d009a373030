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

// Package generator emits a site-specific script header from the
// directive map produced by parsing and translation.
package generator

import (
	"bytes"
	"fmt"
	"log/slog"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/script"
)

// UnknownDirectivePolicy controls what happens when a directive name has
// no entry in a site's translate table.
type UnknownDirectivePolicy string

const (
	PolicyFail   UnknownDirectivePolicy = "fail"
	PolicyWarn   UnknownDirectivePolicy = "warn"
	PolicyIgnore UnknownDirectivePolicy = "ignore"
)

// ValidatePolicy rejects anything but fail/warn/ignore.
func ValidatePolicy(p UnknownDirectivePolicy) error {
	switch p {
	case PolicyFail, PolicyWarn, PolicyIgnore:
		return nil
	default:
		return troikaerrors.NewConfigurationError(
			fmt.Sprintf("invalid unknown directive behaviour %q, should be 'fail', 'warn', or 'ignore'", p), nil)
	}
}

// TranslateFunc computes the native directive line(s) for a raw directive
// value. Returning a nil slice silently drops the directive (the "ignore"
// case used for directives a site does not support but should not warn
// about).
type TranslateFunc func(value []byte) ([][]byte, error)

// Ignore is a TranslateFunc that always drops its directive silently.
func Ignore(_ []byte) ([][]byte, error) { return nil, nil }

// Template returns a TranslateFunc that formats value into a %s-style
// template, e.g. Template("--output=%s") for Slurm's output directive. A
// format with no % in it is a constant line, emitted as is.
func Template(format string) TranslateFunc {
	return func(value []byte) ([][]byte, error) {
		if bytes.IndexByte([]byte(format), '%') < 0 {
			return [][]byte{[]byte(format)}, nil
		}
		return [][]byte{[]byte(fmt.Sprintf(format, value))}, nil
	}
}

// Generator renders translated directives with a site-specific prefix. A
// nil DirectivePrefix disables native directive emission entirely (used by
// sites, like trimurti, with no native directive syntax).
type Generator struct {
	DirectivePrefix []byte
	Translate       map[string]TranslateFunc
	Unknown         UnknownDirectivePolicy
}

// New validates unknown and returns a configured Generator.
func New(prefix []byte, translate map[string]TranslateFunc, unknown UnknownDirectivePolicy) (*Generator, error) {
	if unknown == "" {
		unknown = PolicyWarn
	}
	if err := ValidatePolicy(unknown); err != nil {
		return nil, err
	}
	return &Generator{DirectivePrefix: prefix, Translate: translate, Unknown: unknown}, nil
}

// Generate implements the four-step header algorithm: shebang first,
// translated directives in insertion order, native lines verbatim, then a
// blank line plus any extra lines.
func (g *Generator) Generate(data *script.Data) ([][]byte, error) {
	var header [][]byte

	if data.Shebang != nil {
		shebang := data.Shebang
		if !bytes.HasSuffix(shebang, []byte("\n")) {
			shebang = append(append([]byte(nil), shebang...), '\n')
		}
		header = append(header, shebang)
	}

	if g.DirectivePrefix != nil {
		var genErr error
		data.Directives.Each(func(name string, value []byte) bool {
			fn, ok := g.Translate[name]
			if !ok {
				genErr = g.unknownDirective(name)
				return genErr == nil
			}
			lines, err := fn(value)
			if err != nil {
				genErr = err
				return false
			}
			for _, line := range lines {
				full := make([]byte, 0, len(g.DirectivePrefix)+len(line)+1)
				full = append(full, g.DirectivePrefix...)
				full = append(full, line...)
				full = append(full, '\n')
				header = append(header, full)
			}
			return true
		})
		if genErr != nil {
			return nil, genErr
		}
	}

	for _, entry := range data.Native {
		header = append(header, entry.Line)
	}

	if len(data.Extra) > 0 {
		header = append(header, []byte("\n"))
		header = append(header, data.Extra...)
	}

	return header, nil
}

func (g *Generator) unknownDirective(name string) error {
	switch g.Unknown {
	case PolicyFail:
		return troikaerrors.NewInvocationError(fmt.Sprintf("unknown directive %q", name), nil)
	case PolicyWarn:
		slog.Warn("unknown directive", "name", name)
		return nil
	default: // PolicyIgnore
		return nil
	}
}
