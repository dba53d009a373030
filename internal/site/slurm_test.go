// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlurm(t *testing.T, cfg config.SiteConfig) *SlurmSite {
	t.Helper()
	cfg.Type = "slurm"
	falseVal := false
	if cfg.CopyScript == nil {
		cfg.CopyScript = &falseVal
	}
	s, err := newSlurmSite("cca", cfg, connection.NewLocalConnection(), "alice")
	require.NoError(t, err)
	return s.(*SlurmSite)
}

func TestSlurmSite_SubmitParsesJid(t *testing.T) {
	fakeBin(t, "sbatch", `echo "Submitted batch job 778899"`)

	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho hi\n"), 0o755))

	s := newSlurm(t, config.SiteConfig{})
	require.NoError(t, s.Submit(script, "alice", "", false))

	jidData, err := os.ReadFile(script + ".jid")
	require.NoError(t, err)
	assert.Equal(t, "778899", string(trimTrailingNewline(jidData)))

	subData, err := os.ReadFile(script + ".sub")
	require.NoError(t, err)
	assert.Contains(t, string(subData), "Submitted batch job 778899")
}

func TestSlurmSite_SubmitFailureIsRunError(t *testing.T) {
	fakeBin(t, "sbatch", `echo "sbatch: error: Invalid partition" >&2; exit 1`)

	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))

	s := newSlurm(t, config.SiteConfig{})
	err := s.Submit(script, "alice", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Submission failed")
	assert.Contains(t, err.Error(), script+".sub")
	assert.Contains(t, err.Error(), script+".suberr")

	suberrData, err := os.ReadFile(script + ".suberr")
	require.NoError(t, err)
	assert.Contains(t, string(suberrData), "Invalid partition")
}

// TestSlurmSite_KillPendingCancel mirrors the "Slurm pending cancel"
// scenario: squeue reports PENDING, a single scancel -t PENDING clears it,
// the second squeue query then comes back empty.
func TestSlurmSite_KillPendingCancel(t *testing.T) {
	dir := t.TempDir()
	stateFile := filepath.Join(dir, "state")
	require.NoError(t, os.WriteFile(stateFile, []byte("PENDING\n"), 0o644))

	fakeBin(t, "squeue", `cat `+stateFile)
	fakeBin(t, "scancel", `echo -n > `+stateFile+`; exit 0`)

	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, nil, 0o644))

	s := newSlurm(t, config.SiteConfig{})
	jid, status, err := s.Kill(script, "alice", "", "555", false)
	require.NoError(t, err)
	assert.Equal(t, "555", jid)
	assert.Equal(t, Cancelled, status)
}

func TestSlurmSite_KillVanished(t *testing.T) {
	fakeBin(t, "squeue", `echo "squeue: error: Invalid job id specified" >&2; exit 1`)

	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, nil, 0o644))

	s := newSlurm(t, config.SiteConfig{})
	_, status, err := s.Kill(script, "alice", "", "555", false)
	require.NoError(t, err)
	assert.Equal(t, Vanished, status)
}

func TestSlurmSite_DirectiveTranslation_ConfigOverridesMergeOverClassDefaults(t *testing.T) {
	s := newSlurm(t, config.SiteConfig{
		DirectivePrefix: "#SLURM ",
		Extra: map[string]any{
			"directive_translate": map[string]any{
				"join_output_error": nil,
				"name":              "--job-name %s (custom)",
			},
		},
	})

	prefix, table := s.DirectiveTranslation()
	assert.Equal(t, []byte("#SLURM "), prefix)

	lines, err := table["join_output_error"]([]byte(""))
	require.NoError(t, err)
	assert.Nil(t, lines)

	lines, err = table["name"]([]byte("myjob"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "--job-name myjob (custom)", string(lines[0]))

	// Untouched entries keep their class default.
	lines, err = table["queue"]([]byte("batch"))
	require.NoError(t, err)
	assert.Equal(t, "--partition=batch", string(lines[0]))
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
