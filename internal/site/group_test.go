// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"testing"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFullSite is a minimal Site implementation used to test GroupSite's
// failover selection without shelling out to a real scheduler.
type fakeFullSite struct {
	reachable bool
	submitted bool
}

func (f *fakeFullSite) Submit(script, user, output string, dryrun bool) error {
	f.submitted = true
	return nil
}
func (f *fakeFullSite) Monitor(script, user, output, jid string, dryrun bool) error { return nil }
func (f *fakeFullSite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
	return jid, Killed, nil
}
func (f *fakeFullSite) CheckConnection(timeout int, dryrun bool) (bool, error) { return f.reachable, nil }
func (f *fakeFullSite) NativeParser() parser.Parser                           { return nil }
func (f *fakeFullSite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	return nil, nil
}
func (f *fakeFullSite) TypeName() string { return "fake" }

func TestGroupSite_ResolvesFirstReachable(t *testing.T) {
	g, err := New("failover", config.SiteConfig{Type: "group", Sites: []string{"a", "b", "c"}}, connection.NewLocalConnection(), "alice")
	require.NoError(t, err)
	group := g.(*GroupSite)

	sites := map[string]*fakeFullSite{
		"a": {reachable: false},
		"b": {reachable: true},
		"c": {reachable: true},
	}
	var resolvedOrder []string
	err = group.Resolve(func(name string) (Site, error) {
		resolvedOrder = append(resolvedOrder, name)
		return sites[name], nil
	}, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resolvedOrder)

	require.NoError(t, group.Submit("script.sh", "alice", "", false))
	assert.True(t, sites["b"].submitted)
	assert.False(t, sites["c"].submitted)
}

func TestGroupSite_NoneReachable(t *testing.T) {
	g, err := New("failover", config.SiteConfig{Type: "group", Sites: []string{"a", "b"}}, connection.NewLocalConnection(), "alice")
	require.NoError(t, err)
	group := g.(*GroupSite)

	sites := map[string]*fakeFullSite{"a": {reachable: false}, "b": {reachable: false}}
	err = group.Resolve(func(name string) (Site, error) { return sites[name], nil }, 5, false)
	assert.Error(t, err)
}

func TestGroupSite_RequiresSitesList(t *testing.T) {
	_, err := New("empty", config.SiteConfig{Type: "group"}, connection.NewLocalConnection(), "alice")
	assert.Error(t, err)
}
