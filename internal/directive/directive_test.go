// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := map[string]string{
		"error":     "error_file",
		"job_name":  "name",
		"output":    "output_file",
		"time":      "walltime",
		"walltime":  "walltime",
		"memory":    "memory",
	}
	for in, want := range tests {
		assert.Equal(t, want, Resolve(in))
	}
}

func TestMap_SetGet(t *testing.T) {
	m := NewMap()
	m.Set("name", []byte("myjob"))
	m.Set("job_name", []byte("overridden"))

	v, ok := m.Get("name")
	assert.True(t, ok)
	assert.Equal(t, []byte("overridden"), v)
}

func TestMap_OverwritePreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set("walltime", []byte("1:00:00"))
	m.Set("queue", []byte("batch"))
	m.Set("time", []byte("2:00:00")) // alias of walltime, redefinition

	assert.Equal(t, []string{"walltime", "queue"}, m.Keys())
	v, _ := m.Get("walltime")
	assert.Equal(t, []byte("2:00:00"), v)
}

func TestMap_Delete(t *testing.T) {
	m := NewMap()
	m.Set("error", []byte("foo"))
	m.Delete("error_file")

	_, ok := m.Get("error")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMap_Each(t *testing.T) {
	m := NewMap()
	m.Set("a", []byte("1"))
	m.Set("b", []byte("2"))
	m.Set("c", []byte("3"))

	var seen []string
	m.Each(func(key string, value []byte) bool {
		seen = append(seen, key)
		return key != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}
