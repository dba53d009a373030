// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package connection

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalConnection_Execute_CapturesStdout(t *testing.T) {
	c := NewLocalConnection()
	var out bytes.Buffer
	proc, err := c.Execute([]string{"echo", "hello"}, ExecOptions{Stdout: &out})
	require.NoError(t, err)
	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", out.String())
}

func TestLocalConnection_Execute_NonZeroExit(t *testing.T) {
	c := NewLocalConnection()
	proc, err := c.Execute([]string{"false"}, ExecOptions{})
	require.NoError(t, err)
	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestLocalConnection_Execute_Dryrun(t *testing.T) {
	c := NewLocalConnection()
	proc, err := c.Execute([]string{"rm", "-rf", "/nonexistent"}, ExecOptions{Dryrun: true})
	require.NoError(t, err)
	assert.Nil(t, proc)
}

func TestLocalConnection_Execute_EmptyCommand(t *testing.T) {
	c := NewLocalConnection()
	_, err := c.Execute(nil, ExecOptions{})
	assert.Error(t, err)
}

func TestLocalConnection_IsLocal(t *testing.T) {
	c := NewLocalConnection()
	assert.True(t, c.IsLocal())
	assert.Same(t, Connection(c), c.GetParent())
}

func TestLocalConnection_SendFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	c := NewLocalConnection()
	require.NoError(t, c.SendFile(src, dst, false))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(got))
}

func TestLocalConnection_SendFile_Dryrun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	c := NewLocalConnection()
	require.NoError(t, c.SendFile(src, dst, true))

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalConnection_CheckStatus(t *testing.T) {
	c := NewLocalConnection()
	ok, err := c.CheckStatus(false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalConnection_CheckStatus_Dryrun(t *testing.T) {
	c := NewLocalConnection()
	ok, err := c.CheckStatus(true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSSHConnection_Execute_DryrunWithEnv(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "compute01", User: "alice", SSHVerbose: false}, "")
	var out bytes.Buffer
	_, err := c.Execute([]string{"echo", "hi there"}, ExecOptions{
		Stdout: &out,
		Env:    map[string]string{"FOO": "bar baz"},
		Dryrun: true,
	})
	require.NoError(t, err)
}

func TestSSHConnection_String(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "compute01", User: "alice"}, "")
	assert.Contains(t, c.String(), "compute01")
	assert.Contains(t, c.String(), "alice")
}

func TestSSHConnection_IsLocal(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "compute01"}, "")
	assert.False(t, c.IsLocal())
	assert.True(t, c.GetParent().IsLocal())
}

func TestSSHConnection_DefaultsSSHAndSCPCommands(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "h"}, "")
	assert.Equal(t, "ssh", c.ssh)
	assert.Equal(t, "scp", c.scp)
}

func TestSSHConnection_SSHArgs_DefaultDisablesStrictChecking(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "h", User: "alice"}, "")
	assert.Contains(t, c.sshArgs(), "StrictHostKeyChecking=no")
}

func TestSSHConnection_SSHArgs_HonoursStrictChecking(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "h", StrictHostChecking: true}, "")
	args := c.sshArgs()
	assert.Contains(t, args, "StrictHostKeyChecking=yes")
	assert.NotContains(t, args, "StrictHostKeyChecking=no")
}

func TestSSHConnection_SSHArgs_AppendsSSHOptions(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "h", SSHOptions: []string{"-p", "2222"}}, "")
	assert.Subset(t, c.sshArgs(), []string{"-p", "2222"})
}

func TestSSHConnection_ScpCopy_DryrunWithSCPOptions(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "h", SCPOptions: []string{"-P", "2222"}}, "")
	err := c.scpCopy([]string{"src", "dst"}, true)
	require.NoError(t, err)
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"", "''"},
		{"hi there", "'hi there'"},
		{"it's", `'it'\''s'`},
		{"/path/to/file", "/path/to/file"},
		{"KEY=val", "KEY=val"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shellQuote(tt.in))
	}
}
