// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
	return path
}

func TestSubmit_Dryrun_LeavesScriptUntouched(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "job.sh", "#!/bin/sh\necho hi\n")

	ctrl := New(directConfig(), "alice", true)
	err := ctrl.Submit("local", script, filepath.Join(dir, "job.out"), nil)
	require.NoError(t, err)

	_, err = os.Stat(script + ".orig")
	assert.True(t, os.IsNotExist(err), "dryrun must not write a backup script")
}

func TestSubmit_RewritesScriptAndBacksUpOriginal(t *testing.T) {
	dir := t.TempDir()
	original := "#!/bin/sh\necho hi\n"
	script := writeScript(t, dir, "job.sh", original)
	output := filepath.Join(dir, "job.out")

	ctrl := New(directConfig(), "alice", false)
	err := ctrl.Submit("local", script, output, []string{"name=test-job"})
	require.NoError(t, err)

	backup, err := os.ReadFile(script + ".orig")
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))

	rewritten, err := os.ReadFile(script)
	require.NoError(t, err)
	assert.Contains(t, string(rewritten), "echo hi")

	_, err = os.Stat(script + ".jid")
	assert.NoError(t, err)
}

func TestSubmit_OverridesApplyOnTopOfParsedDirectives(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "job.sh", "#!/bin/sh\n# troika name=original\necho hi\n")
	output := filepath.Join(dir, "job.out")

	// The direct site emits no directives by default (nil prefix), so give
	// it a prefix and a name translation that the rewritten script can be
	// re-parsed from.
	cfg := directConfig()
	local := cfg.Sites["local"]
	local.DirectivePrefix = "# troika "
	local.Extra = map[string]any{"directive_translate": map[string]any{"name": "name=%s"}}
	cfg.Sites["local"] = local

	ctrl := New(cfg, "alice", false)
	require.NoError(t, ctrl.Submit("local", script, output, []string{"name=override"}))

	data, err := parseScriptFile(script, nil)
	require.NoError(t, err)
	name, ok := data.Directives.Get("name")
	require.True(t, ok)
	assert.Equal(t, "override", string(name))
}

func TestSubmit_MissingScript(t *testing.T) {
	dir := t.TempDir()
	ctrl := New(directConfig(), "alice", false)
	err := ctrl.Submit("local", filepath.Join(dir, "missing.sh"), filepath.Join(dir, "out"), nil)
	assert.Error(t, err)
}

func TestSubmit_OversizedScriptRejected(t *testing.T) {
	t.Setenv("TROIKA_MAX_SCRIPT_BYTES", "10")
	dir := t.TempDir()
	script := writeScript(t, dir, "job.sh", "#!/bin/sh\necho this script is much longer than ten bytes\n")

	ctrl := New(directConfig(), "alice", false)
	err := ctrl.Submit("local", script, filepath.Join(dir, "out"), nil)
	assert.Error(t, err)
}
