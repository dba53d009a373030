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

// Package translate transforms the generic directive map into the form
// the chosen site's generator expects, running a configured, ordered list
// of translator functions after parsing and before generation.
package translate

import (
	"fmt"
	"strconv"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/script"
)

// Func is a directive translator: it mutates data in place and may return
// an error (typically a configuration error from a malformed site config).
type Func func(data *script.Data, extraDirectives map[string]any) error

// JoinOutputError sets the "join_output_error" marker directive when the
// script defines no explicit error_file, so the site generator can emit a
// "merge stderr into stdout" directive.
func JoinOutputError(data *script.Data, _ map[string]any) error {
	if _, ok := data.Directives.Get("error_file"); !ok {
		if _, ok := data.Directives.Get("join_output_error"); !ok {
			data.Directives.Set("join_output_error", nil)
		}
	}
	return nil
}

// EnableHyperthreading derives "enable_hyperthreading" from the numeric
// threads_per_core directive when it is not already set: truthy iff the
// value is greater than one.
func EnableHyperthreading(data *script.Data, _ map[string]any) error {
	if _, ok := data.Directives.Get("enable_hyperthreading"); ok {
		return nil
	}
	threadsPerCore := 1
	if raw, ok := data.Directives.Get("threads_per_core"); ok {
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return troikaerrors.NewConfigurationError(
				fmt.Sprintf("invalid threads_per_core value %q", raw), err)
		}
		threadsPerCore = n
	}
	value := "false"
	if threadsPerCore > 1 {
		value = "true"
	}
	data.Directives.Set("enable_hyperthreading", []byte(value))
	return nil
}

// ExtraDirectives copies the site configuration's extra_directives map
// into the directive map, refusing to overwrite an existing value. Scalar
// numeric values are stringified; anything else is a configuration error.
func ExtraDirectives(data *script.Data, extraDirectives map[string]any) error {
	for name, val := range extraDirectives {
		if _, exists := data.Directives.Get(name); exists {
			continue
		}
		var str string
		switch v := val.(type) {
		case string:
			str = v
		case int:
			str = strconv.Itoa(v)
		case int64:
			str = strconv.FormatInt(v, 10)
		case float64:
			str = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			return troikaerrors.NewConfigurationError(
				fmt.Sprintf("invalid value type for directive %q: %v", name, val), nil)
		}
		data.Directives.Set(name, []byte(str))
	}
	return nil
}

// Registry runs a named, ordered list of translator functions, mirroring
// the teacher's hook-registration pattern: register once by name, then
// resolve a per-site enabled subset in configured order.
type Registry struct {
	byName map[string]Func
	order  []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Func)}
}

// Register adds a translator under name. Re-registering the same name
// replaces the implementation without disturbing its position.
func (r *Registry) Register(name string, fn Func) {
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	}
	r.byName[name] = fn
}

// Run executes the translators named in names, in that order, against
// data. An unknown name is a configuration error.
func (r *Registry) Run(names []string, data *script.Data, extraDirectives map[string]any) error {
	for _, name := range names {
		fn, ok := r.byName[name]
		if !ok {
			return troikaerrors.NewConfigurationError(fmt.Sprintf("unknown translator %q", name), nil)
		}
		if err := fn(data, extraDirectives); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a Registry with the three standard translators
// pre-registered in the order join_output_error, enable_hyperthreading,
// extra_directives.
func Default() *Registry {
	r := NewRegistry()
	r.Register("join_output_error", JoinOutputError)
	r.Register("enable_hyperthreading", EnableHyperthreading)
	r.Register("extra_directives", ExtraDirectives)
	return r
}
