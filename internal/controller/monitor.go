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

// Monitor queries the site for jid's current status, writing the raw
// response to "<script>.stat". An empty jid falls back to whatever the
// site recovers from "<script>.jid" — Open Question (b) resolves the
// empty-string case to mean "none provided", matching the CLI help text.
func (c *Controller) Monitor(siteName, scriptPath, output, jid string) error {
	return c.runOperation("monitor", siteName, scriptPath, output, func(s site.Site, cfg config.SiteConfig) error {
		err := s.Monitor(scriptPath, c.User, output, jid, c.Dryrun)
		metrics.RecordMonitor(s.TypeName(), err)
		return err
	})
}
