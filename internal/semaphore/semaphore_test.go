// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semaphore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniqueUser(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestSemaphore_AcquireRelease(t *testing.T) {
	s, err := New(uniqueUser(t), 1)
	require.NoError(t, err)

	require.NoError(t, s.Acquire(nil))
	require.NoError(t, s.Release())
}

func TestSemaphore_FailFastWhenExhausted(t *testing.T) {
	user := uniqueUser(t)
	first, err := New(user, 1)
	require.NoError(t, err)
	require.NoError(t, first.Acquire(nil))
	defer first.Release()

	second, err := New(user, 1)
	require.NoError(t, err)
	zero := 0
	err = second.Acquire(&zero)
	assert.Error(t, err)
}

func TestSemaphore_BlocksUntilReleased(t *testing.T) {
	user := uniqueUser(t)
	first, err := New(user, 1)
	require.NoError(t, err)
	require.NoError(t, first.Acquire(nil))

	second, err := New(user, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- second.Acquire(nil)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, first.Release())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second.Acquire never returned after release")
	}
	require.NoError(t, second.Release())
}

func TestSemaphore_TimeoutExpires(t *testing.T) {
	user := uniqueUser(t)
	first, err := New(user, 1)
	require.NoError(t, err)
	require.NoError(t, first.Acquire(nil))
	defer first.Release()

	second, err := New(user, 1)
	require.NoError(t, err)
	timeout := 1
	start := time.Now()
	err = second.Acquire(&timeout)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestSemaphore_AllowsNConcurrentHolders(t *testing.T) {
	user := uniqueUser(t)
	a, err := New(user, 2)
	require.NoError(t, err)
	b, err := New(user, 2)
	require.NoError(t, err)

	require.NoError(t, a.Acquire(nil))
	require.NoError(t, b.Acquire(nil))
	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
}

func TestNew_RejectsNonPositiveLimit(t *testing.T) {
	_, err := New(uniqueUser(t), 0)
	assert.Error(t, err)
}
