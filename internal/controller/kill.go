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

// KillResult reports what a kill operation actually did: the jid used
// (recovered from the jidfile when none was given) and the resulting
// kill status, one of CANCELLED, KILLED, TERMINATED, VANISHED.
type KillResult struct {
	Jid    string
	Status site.KillStatus
}

// Kill cancels jid (or the one recovered from "<script>.jid") on siteName
// and runs post_kill hooks once a status has been decided.
func (c *Controller) Kill(siteName, scriptPath, output, jid string) (KillResult, error) {
	var result KillResult
	err := c.runOperation("kill", siteName, scriptPath, output, func(s site.Site, cfg config.SiteConfig) error {
		resolvedJid, status, err := s.Kill(scriptPath, c.User, output, jid, c.Dryrun)
		result = KillResult{Jid: resolvedJid, Status: status}
		metrics.RecordKill(s.TypeName(), string(status), err)
		if err != nil {
			return err
		}
		return c.runPostKill(cfg, s, scriptPath, output, resolvedJid, string(status))
	})
	return result, err
}
