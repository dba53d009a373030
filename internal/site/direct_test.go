// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirect(t *testing.T, cfg config.SiteConfig) *DirectSite {
	t.Helper()
	cfg.Type = "direct"
	falseVal := false
	if cfg.CopyScript == nil {
		cfg.CopyScript = &falseVal
	}
	s, err := newDirectSite("local", cfg, connection.NewLocalConnection(), "alice")
	require.NoError(t, err)
	return s.(*DirectSite)
}

func TestDirectSite_SubmitWritesJid(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 0.2\n"), 0o755))
	output := filepath.Join(dir, "job.out")

	s := newDirect(t, config.SiteConfig{})
	require.NoError(t, s.Submit(script, "alice", output, false))

	jidData, err := os.ReadFile(script + ".jid")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(string(jidData)))
}

func TestDirectSite_Monitor(t *testing.T) {
	fakeBin(t, "ps", `echo "F S UID PID PPID"`)

	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, nil, 0o644))

	s := newDirect(t, config.SiteConfig{})
	require.NoError(t, s.Monitor(script, "alice", "", "1234", false))

	data, err := os.ReadFile(script + ".stat")
	require.NoError(t, err)
	assert.Contains(t, string(data), "PID")
}

// TestDirectSite_KillEscalation mirrors the "Direct kill escalation"
// scenario: TERM then KILL, each delivered successfully, final status
// KILLED.
func TestDirectSite_KillEscalation(t *testing.T) {
	fakeBin(t, "kill", `exit 0`)

	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, nil, 0o644))
	require.NoError(t, os.WriteFile(script+".jid", []byte("4242\n"), 0o644))

	term := 15
	kill := 9
	s := newDirect(t, config.SiteConfig{
		KillSequence: []any{
			[]any{0, term},
			[]any{0, kill},
		},
	})

	start := time.Now()
	jid, status, err := s.Kill(script, "alice", "", "", false)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "4242", jid)
	assert.Equal(t, Killed, status)

	jidData, err := os.ReadFile(script + ".jid")
	require.NoError(t, err)
	assert.Equal(t, "4242", strings.TrimSpace(string(jidData)))
}

func TestDirectSite_KillVanishedOnFirstAttempt(t *testing.T) {
	fakeBin(t, "kill", `echo "kill: no such process" >&2; exit 1`)

	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, nil, 0o644))

	term := 15
	s := newDirect(t, config.SiteConfig{KillSequence: []any{[]any{0, term}}})
	_, status, err := s.Kill(script, "alice", "", "9999", false)
	require.NoError(t, err)
	assert.Equal(t, Vanished, status)
}

func TestDirectSite_KillInvalidJid(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, nil, 0o644))
	require.NoError(t, os.WriteFile(script+".jid", []byte("foobar\n"), 0o644))

	s := newDirect(t, config.SiteConfig{})
	_, _, err := s.Kill(script, "alice", "", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job id")
}
