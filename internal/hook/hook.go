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

// Package hook implements Troika's named extension points: at_startup,
// pre_submit, post_kill, and at_exit. Each point is a static registry of
// named implementations; site configuration enables an ordered subset by
// name, and invocation runs each enabled implementation in that order.
//
// This rearchitects the original Python entry-point based Hook.declare /
// Hook.instantiate discovery into static Go registries populated at
// init(), since Go has no runtime entry-point plugin mechanism.
package hook

import (
	"fmt"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

// Registry holds named implementations of a hook point with signature F
// and runs a configured, ordered subset of them.
type Registry[F any] struct {
	byName map[string]F
}

// NewRegistry returns an empty Registry.
func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{byName: make(map[string]F)}
}

// Register adds an implementation under name, replacing any existing one
// registered under the same name.
func (r *Registry[F]) Register(name string, impl F) {
	r.byName[name] = impl
}

// Resolve looks up the named implementations in order, failing with a
// configuration error on the first name that is not registered.
func (r *Registry[F]) Resolve(names []string) ([]F, error) {
	impls := make([]F, 0, len(names))
	for _, name := range names {
		impl, ok := r.byName[name]
		if !ok {
			return nil, troikaerrors.NewConfigurationError(
				fmt.Sprintf("hook implementation %q not found", name), nil)
		}
		impls = append(impls, impl)
	}
	return impls, nil
}
