// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConnection_Local(t *testing.T) {
	ctrl := New(directConfig(), "alice", false)
	ok, err := ctrl.CheckConnection("local", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckConnection_UnknownSite(t *testing.T) {
	ctrl := New(directConfig(), "alice", false)
	_, err := ctrl.CheckConnection("nope", 0)
	assert.Error(t, err)
}

func TestCheckConnection_TimeoutOverridesDefault(t *testing.T) {
	ctrl := New(directConfig(), "alice", false)
	ctrl.ConnectTimeout = 5
	_, err := ctrl.CheckConnection("local", 30)
	require.NoError(t, err)
	assert.Equal(t, 5, ctrl.ConnectTimeout, "explicit per-call timeout must not mutate the controller's default")
}
