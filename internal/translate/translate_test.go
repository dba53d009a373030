// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/troika/internal/script"
)

func TestJoinOutputError_SetsWhenNoErrorFile(t *testing.T) {
	data := script.New()
	require.NoError(t, JoinOutputError(data, nil))

	_, ok := data.Directives.Get("join_output_error")
	assert.True(t, ok)
}

func TestJoinOutputError_SkipsWhenErrorFileSet(t *testing.T) {
	data := script.New()
	data.Directives.Set("error_file", []byte("job.err"))
	require.NoError(t, JoinOutputError(data, nil))

	_, ok := data.Directives.Get("join_output_error")
	assert.False(t, ok)
}

func TestEnableHyperthreading(t *testing.T) {
	tests := []struct {
		name          string
		threadsPerCore string
		want          string
	}{
		{"unset defaults off", "", "false"},
		{"one is off", "1", "false"},
		{"two is on", "2", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := script.New()
			if tt.threadsPerCore != "" {
				data.Directives.Set("threads_per_core", []byte(tt.threadsPerCore))
			}
			require.NoError(t, EnableHyperthreading(data, nil))

			v, ok := data.Directives.Get("enable_hyperthreading")
			require.True(t, ok)
			assert.Equal(t, tt.want, string(v))
		})
	}
}

func TestEnableHyperthreading_InvalidValue(t *testing.T) {
	data := script.New()
	data.Directives.Set("threads_per_core", []byte("not-a-number"))
	assert.Error(t, EnableHyperthreading(data, nil))
}

func TestExtraDirectives(t *testing.T) {
	data := script.New()
	data.Directives.Set("queue", []byte("existing"))

	extra := map[string]any{
		"queue":   "should-not-overwrite",
		"account": "research",
		"nodes":   3,
	}
	require.NoError(t, ExtraDirectives(data, extra))

	v, _ := data.Directives.Get("queue")
	assert.Equal(t, []byte("existing"), v)

	v, _ = data.Directives.Get("account")
	assert.Equal(t, []byte("research"), v)

	v, _ = data.Directives.Get("nodes")
	assert.Equal(t, []byte("3"), v)
}

func TestExtraDirectives_InvalidType(t *testing.T) {
	data := script.New()
	err := ExtraDirectives(data, map[string]any{"bad": []string{"x"}})
	assert.Error(t, err)
}

func TestRegistry_RunsInConfiguredOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.Register("a", func(d *script.Data, _ map[string]any) error { order = append(order, "a"); return nil })
	r.Register("b", func(d *script.Data, _ map[string]any) error { order = append(order, "b"); return nil })

	require.NoError(t, r.Run([]string{"b", "a"}, script.New(), nil))
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestRegistry_UnknownName(t *testing.T) {
	r := NewRegistry()
	err := r.Run([]string{"nope"}, script.New(), nil)
	assert.Error(t, err)
}

func TestDefault_RunsAllThree(t *testing.T) {
	r := Default()
	data := script.New()
	require.NoError(t, r.Run([]string{"join_output_error", "enable_hyperthreading", "extra_directives"}, data, nil))

	_, ok := data.Directives.Get("join_output_error")
	assert.True(t, ok)
	_, ok = data.Directives.Get("enable_hyperthreading")
	assert.True(t, ok)
}
