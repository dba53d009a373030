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

package controller

import (
	"bufio"
	"fmt"
	"io"
	"os"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/script"
)

// parseScriptFile drives path through the shebang parser, the Troika
// directive parser, and the site's native parser (nil for sites without
// one), assembling a script.Data. Lines no parser claims become the body,
// in original order. This is the one-pass line reader §4.1 describes;
// parsing is byte-level and never decodes the body as text.
func parseScriptFile(path string, native parser.Parser) (*script.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, troikaerrors.NewInvocationError(fmt.Sprintf("cannot open script %q", path), err)
	}
	defer f.Close()
	return parseScript(f, native)
}

func parseScript(r io.Reader, native parser.Parser) (*script.Data, error) {
	shebangParser := parser.NewShebangParser()
	directiveParser := parser.NewDirectiveParser()

	labels := []string{"shebang", "directive"}
	parsers := []parser.Parser{shebangParser, directiveParser}
	if native != nil {
		labels = append(labels, "native")
		parsers = append(parsers, native)
	}
	multi := parser.NewMultiParser(labels, parsers)

	data := script.New()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := append(scanner.Bytes(), '\n')
		drop, err := multi.Feed(line)
		if err != nil {
			return nil, err
		}
		if !drop {
			data.Body = append(data.Body, append([]byte(nil), line...))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, troikaerrors.NewRunError("failed reading script", err)
	}

	data.Shebang = shebangParser.Data
	data.Directives = directiveParser.Data
	if np, ok := native.(*parser.NativeParser); ok {
		data.Native = np.Data
	}
	return data, nil
}
