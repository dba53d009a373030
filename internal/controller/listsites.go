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

import "sort"

// SiteInfo summarizes one configured site entry for the list-sites
// operation, which needs neither a built Site nor the action-context
// lifecycle: it only reads configuration.
type SiteInfo struct {
	Name       string
	Type       string
	Connection string
}

// ListSites enumerates the configured sites in name order.
func (c *Controller) ListSites() []SiteInfo {
	infos := make([]SiteInfo, 0, len(c.Config.Sites))
	for name, cfg := range c.Config.Sites {
		conn := string(cfg.Connection)
		if conn == "" {
			conn = "local"
		}
		infos = append(infos, SiteInfo{Name: name, Type: cfg.Type, Connection: conn})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
