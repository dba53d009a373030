// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveInOrder(t *testing.T) {
	r := NewRegistry[func() string]()
	r.Register("a", func() string { return "a" })
	r.Register("b", func() string { return "b" })

	impls, err := r.Resolve([]string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, impls, 2)
	assert.Equal(t, "b", impls[0]())
	assert.Equal(t, "a", impls[1]())
}

func TestRegistry_UnknownName(t *testing.T) {
	r := NewRegistry[func() string]()
	_, err := r.Resolve([]string{"nope"})
	assert.Error(t, err)
}

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{"create_output_dir", "remove_previous_output", "copy_orig_script"} {
		_, err := PreSubmit.Resolve([]string{name})
		assert.NoError(t, err, name)
	}
	for _, name := range []string{"copy_submit_logfile", "copy_kill_logfile"} {
		_, err := AtExit.Resolve([]string{name})
		assert.NoError(t, err, name)
	}
	_, err := AtStartup.Resolve([]string{"check_connection"})
	assert.NoError(t, err)
	_, err = PostKill.Resolve([]string{"abort_on_ecflow"})
	assert.NoError(t, err)
}
