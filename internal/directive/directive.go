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

// Package directive provides the ordered, overwrite-in-place directive map
// the parser fills and the generator walks in insertion order.
package directive

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Aliases resolves the handful of short directive names the parser rewrites
// to their canonical long form before insertion.
var Aliases = map[string]string{
	"error":    "error_file",
	"job_name": "name",
	"output":   "output_file",
	"time":     "walltime",
}

// Resolve returns the canonical name for a directive key, applying Aliases.
func Resolve(name string) string {
	if canon, ok := Aliases[name]; ok {
		return canon
	}
	return name
}

// Map is an ordered map from directive name to raw byte value. Later Set
// calls for an existing key overwrite the value in place without moving the
// key's position, matching the parser's "later definitions overwrite
// earlier" rule while the generator still sees first-write ordering.
type Map struct {
	om *orderedmap.OrderedMap[string, []byte]
}

// NewMap returns an empty directive map.
func NewMap() *Map {
	return &Map{om: orderedmap.New[string, []byte]()}
}

// Set resolves aliases and stores value under the canonical key, preserving
// the key's original insertion position if it already existed.
func (m *Map) Set(name string, value []byte) {
	m.om.Set(Resolve(name), value)
}

// Get returns the value for name (after alias resolution) and whether it
// was present.
func (m *Map) Get(name string) ([]byte, bool) {
	return m.om.Get(Resolve(name))
}

// Delete removes name (after alias resolution) from the map.
func (m *Map) Delete(name string) {
	m.om.Delete(Resolve(name))
}

// Len returns the number of directives currently stored.
func (m *Map) Len() int {
	return m.om.Len()
}

// Keys returns the directive names in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every (key, value) pair in insertion order. Iteration
// stops early if fn returns false.
func (m *Map) Each(fn func(key string, value []byte) bool) {
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}
