// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/troika/internal/connection"
)

func TestCreateOutputDir(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "jobs", "out.log")
	conn := connection.NewLocalConnection()

	require.NoError(t, CreateOutputDir(conn, "script.sh", output, false))

	info, err := os.Stat(filepath.Dir(output))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateOutputDir_NoOutput(t *testing.T) {
	conn := connection.NewLocalConnection()
	assert.NoError(t, CreateOutputDir(conn, "script.sh", "", false))
}

func TestRemovePreviousOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.log")
	require.NoError(t, os.WriteFile(output, []byte("stale"), 0o644))

	conn := connection.NewLocalConnection()
	require.NoError(t, RemovePreviousOutput(conn, "script.sh", output, false))

	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyOrigScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	orig := script + ".orig"
	require.NoError(t, os.WriteFile(orig, []byte("#!/bin/sh\n"), 0o644))

	outDir := filepath.Join(dir, "outputs")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	output := filepath.Join(outDir, "job.out")

	conn := connection.NewLocalConnection()
	require.NoError(t, CopyOrigScript(conn, script, output, false))

	got, err := os.ReadFile(filepath.Join(outDir, "job.sh.orig"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(got))
}

func TestCopySubmitLogfile_SkipsWrongAction(t *testing.T) {
	conn := connection.NewLocalConnection()
	assert.NoError(t, CopySubmitLogfile(conn, "kill", "site1", "/tmp/out/job.out", 0, "/tmp/job.submitlog", false))
}

func TestCopySubmitLogfile_CopiesOnSubmit(t *testing.T) {
	dir := t.TempDir()
	logfile := filepath.Join(dir, "job.submitlog")
	require.NoError(t, os.WriteFile(logfile, []byte("log"), 0o644))

	outDir := filepath.Join(dir, "outputs")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	output := filepath.Join(outDir, "job.out")

	conn := connection.NewLocalConnection()
	require.NoError(t, CopySubmitLogfile(conn, "submit", "site1", output, 0, logfile, false))

	got, err := os.ReadFile(filepath.Join(outDir, "job.submitlog"))
	require.NoError(t, err)
	assert.Equal(t, "log", string(got))
}

func TestCheckConnection_Succeeds(t *testing.T) {
	conn := connection.NewLocalConnection()
	interrupt, err := CheckConnection(conn, "submit", "site1", false)
	require.NoError(t, err)
	assert.False(t, interrupt)
}
