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

package main

import (
	"fmt"
	"os"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

// reportError prints err in the distinctive form its TroikaError kind
// demands, falling back to a plain message for anything else, and returns
// the exit code the CLI should use.
func reportError(err error) int {
	if err == nil {
		return 0
	}
	if te, ok := troikaerrors.AsTroikaError(err); ok {
		fmt.Fprint(os.Stderr, te.Format(false))
		return troikaerrors.ExitCode
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
