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

// Package script defines the data shape shared by the parser, translators,
// and generator: the mapping the parser fills and the generator walks.
package script

import (
	"github.com/ecmwf/troika/internal/directive"
	"github.com/ecmwf/troika/internal/parser"
)

// Data is the mapping produced by the parser and consumed by the
// generator.
type Data struct {
	// Shebang is the optional "#!..." line, including its trailing
	// newline, or nil if the script had none.
	Shebang []byte

	// Directives is the ordered Troika directive map (insertion order,
	// later definitions overwrite earlier).
	Directives *directive.Map

	// Native holds the site-native directives captured verbatim, in the
	// order they appeared, so unrecognized ones can be kept.
	Native []parser.NativeEntry

	// Body is the script lines that were not recognized as directives,
	// in original order, each including its line terminator.
	Body [][]byte

	// Extra is an optional sequence of extra raw directive lines
	// appended after the translated ones.
	Extra [][]byte
}

// New returns an empty Data with an initialized directive map.
func New() *Data {
	return &Data{Directives: directive.NewMap()}
}
