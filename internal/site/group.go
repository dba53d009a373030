// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
)

func init() {
	Register("group", newGroupSite)
}

// SiteFactory builds a named child site, deferred so GroupSite can be
// constructed without forcing every member's connection to be live yet.
type SiteFactory func(name string) (Site, error)

// GroupSite picks the first reachable member of an ordered list of child
// sites at construction time and delegates every operation to it.
type GroupSite struct {
	name     string
	members  []string
	selected Site
}

func newGroupSite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
	if len(cfg.Sites) == 0 {
		return nil, troikaerrors.NewConfigurationError(fmt.Sprintf("group site %q requires a non-empty sites list", name), nil)
	}
	return &GroupSite{name: name, members: cfg.Sites}, nil
}

// Resolve probes each member, in order, via resolver (typically the
// controller's site-construction function) and selects the first one
// whose check_connection succeeds. dryrun always selects the first member
// without probing, since there is nothing to check.
func (g *GroupSite) Resolve(resolver func(name string) (Site, error), timeout int, dryrun bool) error {
	if dryrun {
		first, err := resolver(g.members[0])
		if err != nil {
			return err
		}
		g.selected = first
		return nil
	}

	var lastErr error
	for _, memberName := range g.members {
		member, err := resolver(memberName)
		if err != nil {
			lastErr = err
			continue
		}
		ok, err := member.CheckConnection(timeout, false)
		if err != nil || !ok {
			lastErr = err
			continue
		}
		g.selected = member
		return nil
	}
	if lastErr != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("no reachable site in group %q", g.name), lastErr)
	}
	return troikaerrors.NewRunError(fmt.Sprintf("no reachable site in group %q", g.name), nil)
}

// Connection returns the selected member's connection, if it exposes
// one, so the controller can run hooks against the site group actually
// ended up using.
func (g *GroupSite) Connection() connection.Connection {
	if holder, ok := g.selected.(ConnectionHolder); ok {
		return holder.Connection()
	}
	return nil
}

func (g *GroupSite) require() error {
	if g.selected == nil {
		return troikaerrors.NewRunError(fmt.Sprintf("group %q: no member resolved, call Resolve first", g.name), nil)
	}
	return nil
}

func (g *GroupSite) TypeName() string { return "group" }

func (g *GroupSite) NativeParser() parser.Parser {
	if g.selected == nil {
		return nil
	}
	return g.selected.NativeParser()
}

func (g *GroupSite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	if g.selected == nil {
		return nil, map[string]generator.TranslateFunc{}
	}
	return g.selected.DirectiveTranslation()
}

func (g *GroupSite) CheckConnection(timeout int, dryrun bool) (bool, error) {
	if err := g.require(); err != nil {
		return false, err
	}
	return g.selected.CheckConnection(timeout, dryrun)
}

func (g *GroupSite) Submit(script, user, output string, dryrun bool) error {
	if err := g.require(); err != nil {
		return err
	}
	return g.selected.Submit(script, user, output, dryrun)
}

func (g *GroupSite) Monitor(script, user, output, jid string, dryrun bool) error {
	if err := g.require(); err != nil {
		return err
	}
	return g.selected.Monitor(script, user, output, jid, dryrun)
}

func (g *GroupSite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
	if err := g.require(); err != nil {
		return "", "", err
	}
	return g.selected.Kill(script, user, output, jid, dryrun)
}
