// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript_ShebangDirectivesAndBody(t *testing.T) {
	script := strings.Join([]string{
		"#!/bin/bash",
		"# troika queue=batch",
		"# troika walltime = 01:00:00 ",
		"echo hello",
		"",
	}, "\n")

	data, err := parseScript(strings.NewReader(script), nil)
	require.NoError(t, err)

	assert.Equal(t, "#!/bin/bash\n", string(data.Shebang))

	queue, ok := data.Directives.Get("queue")
	require.True(t, ok)
	assert.Equal(t, "batch", string(queue))

	walltime, ok := data.Directives.Get("walltime")
	require.True(t, ok)
	assert.Equal(t, "01:00:00", string(walltime))

	body := string(joinLines(data.Body))
	assert.Equal(t, "echo hello\n", body)
}

func TestParseScript_NoShebangNoDirectives(t *testing.T) {
	data, err := parseScript(strings.NewReader("echo a\necho b\n"), nil)
	require.NoError(t, err)
	assert.Nil(t, data.Shebang)
	assert.Equal(t, 0, data.Directives.Len())
	assert.Equal(t, 2, len(data.Body))
}

func TestParseScriptFile_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := parseScriptFile(filepath.Join(dir, "missing.sh"), nil)
	assert.Error(t, err)
}

func TestParseScriptFile_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(path, []byte("# troika queue=fast\necho hi\n"), 0o644))

	data, err := parseScriptFile(path, nil)
	require.NoError(t, err)
	queue, ok := data.Directives.Get("queue")
	require.True(t, ok)
	assert.Equal(t, "fast", string(queue))
}

func joinLines(lines [][]byte) []byte {
	var out []byte
	for _, l := range lines {
		out = append(out, l...)
	}
	return out
}
