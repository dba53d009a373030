// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/script"
)

func joined(lines [][]byte) string {
	return string(bytes.Join(lines, nil))
}

func TestGenerate_SlurmAddOutput(t *testing.T) {
	data := script.New()
	data.Shebang = []byte("#!/usr/bin/env bash\n")
	data.Directives.Set("output_file", []byte("/tmp/out.log"))

	g, err := New([]byte("#SBATCH "), map[string]TranslateFunc{
		"output_file": Template("--output=%s"),
	}, PolicyWarn)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)

	got := joined(header)
	want := "#!/usr/bin/env bash\n#SBATCH --output=/tmp/out.log\n"
	assert.Equal(t, want, got)
}

func TestGenerate_NativeLinesAfterTranslated(t *testing.T) {
	data := script.New()
	data.Directives.Set("output_file", []byte("/tmp/out.log"))
	data.Native = []parser.NativeEntry{
		{Key: "-n", Line: []byte("#SBATCH -n 1\n")},
		{Key: "-J", Line: []byte("#SBATCH -J hello\n")},
	}

	g, err := New([]byte("#SBATCH "), map[string]TranslateFunc{
		"output_file": Template("--output=%s"),
	}, PolicyWarn)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)

	want := "#SBATCH --output=/tmp/out.log\n#SBATCH -n 1\n#SBATCH -J hello\n"
	assert.Equal(t, want, joined(header))
}

func TestGenerate_PBSDropError(t *testing.T) {
	data := script.New()
	data.Directives.Set("join_output_error", nil)
	data.Directives.Set("output_file", []byte("/tmp/out.log"))

	g, err := New([]byte("#PBS "), map[string]TranslateFunc{
		"join_output_error": Template("-j oe"),
		"output_file":       Template("-o %s"),
	}, PolicyWarn)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)

	got := joined(header)
	assert.Contains(t, got, "#PBS -j oe\n")
	assert.Contains(t, got, "#PBS -o /tmp/out.log\n")
	assert.NotContains(t, got, "-e")
}

func TestGenerate_UnknownDirective_Fail(t *testing.T) {
	data := script.New()
	data.Directives.Set("mystery", []byte("x"))

	g, err := New([]byte("#SBATCH "), map[string]TranslateFunc{}, PolicyFail)
	require.NoError(t, err)

	_, err = g.Generate(data)
	assert.Error(t, err)
}

func TestGenerate_UnknownDirective_WarnContinues(t *testing.T) {
	data := script.New()
	data.Directives.Set("mystery", []byte("x"))
	data.Directives.Set("output_file", []byte("/tmp/out.log"))

	g, err := New([]byte("#SBATCH "), map[string]TranslateFunc{
		"output_file": Template("--output=%s"),
	}, PolicyWarn)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)
	assert.Equal(t, "#SBATCH --output=/tmp/out.log\n", joined(header))
}

func TestGenerate_IgnoreMarkerSilentlyDrops(t *testing.T) {
	data := script.New()
	data.Directives.Set("memory_per_node", []byte("4G"))

	g, err := New([]byte("#SBATCH "), map[string]TranslateFunc{
		"memory_per_node": Ignore,
	}, PolicyFail)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)
	assert.Empty(t, header)
}

func TestGenerate_NilPrefixDisablesDirectives(t *testing.T) {
	data := script.New()
	data.Directives.Set("output_file", []byte("/tmp/out.log"))

	g, err := New(nil, map[string]TranslateFunc{"output_file": Template("-o %s")}, PolicyFail)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)
	assert.Empty(t, header)
}

func TestGenerate_ExtraAfterBlankLine(t *testing.T) {
	data := script.New()
	data.Extra = [][]byte{[]byte("extra line\n")}

	g, err := New(nil, map[string]TranslateFunc{}, PolicyWarn)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)
	assert.Equal(t, "\nextra line\n", joined(header))
}

func TestGenerate_ShebangGetsTrailingNewline(t *testing.T) {
	data := script.New()
	data.Shebang = []byte("#!/bin/sh")

	g, err := New(nil, map[string]TranslateFunc{}, PolicyWarn)
	require.NoError(t, err)

	header, err := g.Generate(data)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", joined(header))
}

func TestNew_InvalidPolicy(t *testing.T) {
	_, err := New(nil, nil, "bogus")
	assert.Error(t, err)
}
