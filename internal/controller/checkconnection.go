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

package controller

import (
	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/metrics"
	"github.com/ecmwf/troika/internal/site"
)

// CheckConnection probes siteName's reachability, overriding the
// controller's default ConnectTimeout when timeout is positive. It carries
// no script, so the action-context lifecycle runs with an empty
// scriptPath and output.
func (c *Controller) CheckConnection(siteName string, timeout int) (bool, error) {
	var ok bool
	err := c.runOperation("check_connection", siteName, "", "", func(s site.Site, cfg config.SiteConfig) error {
		effective := c.ConnectTimeout
		if timeout > 0 {
			effective = timeout
		}
		reachable, err := s.CheckConnection(effective, c.Dryrun)
		ok = reachable
		metrics.RecordCheckConnection(s.TypeName(), err)
		return err
	})
	return ok, err
}
