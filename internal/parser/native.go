// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parser

import (
	"fmt"
	"regexp"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

var (
	pbsLineRE   = regexp.MustCompile(`^#\s*PBS\s+(.+)$`)
	pbsArgRE    = regexp.MustCompile(`^(\S+)(\s+)?(.*)?$`)
	sgeLineRE   = regexp.MustCompile(`^#\s*\$\s+(.+)$`)
	sgeArgRE    = pbsArgRE
	slurmLineRE = regexp.MustCompile(`^#\s*SBATCH\s+(.+)$`)
	slurmArgRE  = regexp.MustCompile(`^([^\s=]+)(=|\s+)?(.*)?$`)
)

// splitSpaceSeparated implements the PBS/SGE argument grammar: the key is
// the first whitespace-delimited token, the rest (if any) is the value.
//
//	splitSpaceSeparated("-o foo") => ("-o", "foo")
//	splitSpaceSeparated("-N job") => ("-N", "job")
//	splitSpaceSeparated("-V")     => ("-V", nil)
func splitSpaceSeparated(arg []byte) ([]byte, []byte, error) {
	m := pbsArgRE.FindSubmatch(arg)
	if m == nil {
		return nil, nil, troikaerrors.NewRunError(fmt.Sprintf("malformed directive argument: %q", arg), nil)
	}
	key := m[1]
	if len(m[2]) == 0 {
		return key, nil, nil
	}
	return key, m[3], nil
}

// splitSlurmDirective implements the Slurm argument grammar: the key runs
// up to the first "=" or whitespace, either of which may separate it from
// the value.
//
//	splitSlurmDirective("--output=foo") => ("--output", "foo")
//	splitSlurmDirective("-J job")       => ("-J", "job")
//	splitSlurmDirective("--exclusive")  => ("--exclusive", nil)
func splitSlurmDirective(arg []byte) ([]byte, []byte, error) {
	m := slurmArgRE.FindSubmatch(arg)
	if m == nil {
		return nil, nil, troikaerrors.NewRunError(fmt.Sprintf("malformed sbatch argument: %q", arg), nil)
	}
	key := m[1]
	if len(m[2]) == 0 {
		return key, nil, nil
	}
	return key, m[3], nil
}

// pbsDropKeys are native directives pbs_add_output always regenerates, so
// stray copies from the input script must not survive.
var pbsDropKeys = map[string]bool{"-o": true, "-e": true, "-j": true}

// sgeDropKeys mirrors pbsDropKeys for SGE's near-identical qsub dialect.
var sgeDropKeys = map[string]bool{"-o": true, "-e": true, "-j": true}

// slurmDropKeys mirrors pbsDropKeys for sbatch's long-option spellings.
var slurmDropKeys = map[string]bool{"-o": true, "--output": true, "-e": true, "--error": true}

// NewPBSParser returns a NativeParser recognizing `#PBS ...` lines.
func NewPBSParser() *NativeParser {
	return &NativeParser{lineRE: pbsLineRE, splitter: splitSpaceSeparated, DropKeys: pbsDropKeys}
}

// NewSGEParser returns a NativeParser recognizing `#$ ...` lines.
func NewSGEParser() *NativeParser {
	return &NativeParser{lineRE: sgeLineRE, splitter: splitSpaceSeparated, DropKeys: sgeDropKeys}
}

// NewSlurmParser returns a NativeParser recognizing `#SBATCH ...` lines.
func NewSlurmParser() *NativeParser {
	return &NativeParser{lineRE: slurmLineRE, splitter: splitSlurmDirective, DropKeys: slurmDropKeys}
}
