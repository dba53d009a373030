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

// Package parser extracts Troika directives, the shebang, and site-native
// directives from a script stream, feeding one line at a time.
package parser

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/ecmwf/troika/internal/directive"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

// Parser is fed one raw line (without interpreting encoding) and reports
// whether the line should be dropped from the script body.
type Parser interface {
	Feed(line []byte) (drop bool, err error)
}

var (
	directiveRE = regexp.MustCompile(`(?i)^#\s*troika\s+(.+?)\s*$`)
	keyvalRE    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)
)

// chomp strips a single trailing \n (and a preceding \r) so "$"-anchored
// patterns written against a logical line still match lines read with
// their terminator attached.
func chomp(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line
}

// DirectiveParser extracts `# troika key=value` lines into an ordered
// directive map, applying alias resolution and overwrite-on-redefine.
type DirectiveParser struct {
	Data *directive.Map
}

// NewDirectiveParser returns an empty DirectiveParser.
func NewDirectiveParser() *DirectiveParser {
	return &DirectiveParser{Data: directive.NewMap()}
}

// Feed implements Parser.
func (p *DirectiveParser) Feed(line []byte) (bool, error) {
	m := directiveRE.FindSubmatch(chomp(line))
	if m == nil {
		return false, nil
	}
	kv := m[1]
	kvm := keyvalRE.FindSubmatch(kv)
	if kvm == nil {
		return false, troikaerrors.NewRunError(fmt.Sprintf("invalid key-value pair: %s", kv), nil)
	}
	key := string(kvm[1])
	value := append([]byte(nil), kvm[2]...)
	p.Data.Set(key, value)
	return true, nil
}

// ParseDirectiveArgs parses a list of "-D name=value" command-line
// overrides into a directive map sharing the same key-value grammar as
// file directives, so aliasing stays consistent between the two sources.
func ParseDirectiveArgs(args []string) (*directive.Map, error) {
	data := directive.NewMap()
	for _, arg := range args {
		kvm := keyvalRE.FindSubmatch([]byte(arg))
		if kvm == nil {
			return nil, troikaerrors.NewInvocationError(fmt.Sprintf("invalid key-value pair: %q", arg), nil)
		}
		data.Set(string(kvm[1]), append([]byte(nil), kvm[2]...))
	}
	return data, nil
}

// ShebangParser extracts the first non-blank line if it begins with "#!".
type ShebangParser struct {
	Data []byte
	done bool
}

// NewShebangParser returns a fresh ShebangParser.
func NewShebangParser() *ShebangParser {
	return &ShebangParser{}
}

var blankLineRE = regexp.MustCompile(`^\s*$`)

// Feed implements Parser.
func (p *ShebangParser) Feed(line []byte) (bool, error) {
	if p.done {
		return false, nil
	}
	if blankLineRE.Match(line) {
		return false, nil
	}
	p.done = true
	if bytes.HasPrefix(line, []byte("#!")) {
		p.Data = append([]byte(nil), line...)
		return true, nil
	}
	return false, nil
}

// NativeEntry is one captured native directive: its parsed (key, value)
// and the original line bytes, so unrecognized/kept directives can be
// re-emitted verbatim.
type NativeEntry struct {
	Key   string
	Value []byte
	Line  []byte
}

// NativeParser recognizes a site's native directive comment syntax
// (`#PBS`, `#$`, `#SBATCH`) and captures matching lines, dropping the ones
// whose key appears in DropKeys.
type NativeParser struct {
	Data     []NativeEntry
	lineRE   *regexp.Regexp
	splitter func(arg []byte) (key, value []byte, err error)
	DropKeys map[string]bool
}

// Feed implements Parser.
func (p *NativeParser) Feed(line []byte) (bool, error) {
	m := p.lineRE.FindSubmatch(chomp(line))
	if m == nil {
		return false, nil
	}
	key, value, err := p.splitter(m[1])
	if err != nil {
		return false, err
	}
	entry := NativeEntry{Key: string(key), Value: value, Line: append([]byte(nil), line...)}
	p.Data = append(p.Data, entry)
	if p.DropKeys[entry.Key] {
		return true, nil
	}
	return false, nil
}

// MultiParser composes labelled sub-parsers: each line is fed to every
// sub-parser in order until one reports "drop".
type MultiParser struct {
	Labels  []string
	Parsers []Parser
}

// NewMultiParser pairs labels with parsers positionally.
func NewMultiParser(labels []string, parsers []Parser) *MultiParser {
	return &MultiParser{Labels: labels, Parsers: parsers}
}

// Feed implements Parser.
func (p *MultiParser) Feed(line []byte) (bool, error) {
	for _, sub := range p.Parsers {
		drop, err := sub.Feed(line)
		if err != nil {
			return false, err
		}
		if drop {
			return true, nil
		}
	}
	return false, nil
}

// ByLabel returns the sub-parser registered under label, if any.
func (p *MultiParser) ByLabel(label string) (Parser, bool) {
	for i, l := range p.Labels {
		if l == label {
			return p.Parsers[i], true
		}
	}
	return nil, false
}
