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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ecmwf/troika/internal/config"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/metrics"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/site"
	"github.com/ecmwf/troika/internal/translate"
)

// standardTranslators is the fixed order spec §4.2 runs them in: derive
// join_output_error and enable_hyperthreading before letting
// extra_directives fill in anything still unset.
var standardTranslators = []string{"join_output_error", "enable_hyperthreading", "extra_directives"}

// Submit runs the full submit pipeline: parse, apply -D overrides, inject
// the default shebang, set output_file, translate, generate, swap the
// script in place, run pre_submit hooks, and delegate to Site.Submit.
func (c *Controller) Submit(siteName, scriptPath, output string, overrides []string) error {
	return c.runOperation("submit", siteName, scriptPath, output, func(s site.Site, cfg config.SiteConfig) error {
		err := c.submitBody(s, cfg, scriptPath, output, overrides)
		metrics.RecordSubmit(s.TypeName(), err)
		return err
	})
}

func (c *Controller) submitBody(s site.Site, cfg config.SiteConfig, scriptPath, output string, overrides []string) error {
	info, err := os.Stat(scriptPath)
	if err != nil {
		return troikaerrors.NewInvocationError(fmt.Sprintf("cannot stat script %q", scriptPath), err)
	}
	if maxBytes := config.MaxScriptBytes(); info.Size() > int64(maxBytes) {
		return troikaerrors.NewInvocationError(
			fmt.Sprintf("script %q (%d bytes) exceeds the maximum of %d bytes", scriptPath, info.Size(), maxBytes), nil)
	}

	data, err := parseScriptFile(scriptPath, s.NativeParser())
	if err != nil {
		return err
	}

	overrideMap, err := parser.ParseDirectiveArgs(overrides)
	if err != nil {
		return err
	}
	overrideMap.Each(func(name string, value []byte) bool {
		data.Directives.Set(name, value)
		return true
	})

	if data.Shebang == nil && cfg.DefaultShebang != "" {
		data.Shebang = []byte(cfg.DefaultShebang + "\n")
	}

	if output != "" {
		data.Directives.Set("output_file", []byte(output))
	}

	if err := translate.Default().Run(standardTranslators, data, cfg.ExtraDirectives); err != nil {
		return err
	}

	prefix, table := s.DirectiveTranslation()
	policy := generator.UnknownDirectivePolicy(cfg.UnknownDirective)
	gen, err := generator.New(prefix, table, policy)
	if err != nil {
		return err
	}
	header, err := gen.Generate(data)
	if err != nil {
		return err
	}

	if !c.Dryrun {
		if err := replaceScript(scriptPath, info, header, data.Body); err != nil {
			return err
		}
	}

	if err := c.runPreSubmit(cfg, s, scriptPath, output); err != nil {
		return err
	}

	return s.Submit(scriptPath, c.User, output, c.Dryrun)
}

// replaceScript writes header+body to a sibling temp file sharing
// scriptPath's permissions, atomically renames it over scriptPath, and
// only then backs up the pre-generation bytes to "<scriptPath>.orig" —
// spec §5's ordering guarantee that .orig is written only after the
// generated file has replaced the input. An existing .orig is overwritten
// with a warning rather than treated as fatal, matching the "idempotent
// preprocessing" invariant of spec §8.
func replaceScript(scriptPath string, info os.FileInfo, header [][]byte, body [][]byte) error {
	original, err := os.ReadFile(scriptPath)
	if err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot read script %q", scriptPath), err)
	}

	dir := filepath.Dir(scriptPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(scriptPath)+".troika-*")
	if err != nil {
		return troikaerrors.NewRunError("cannot create temporary script file", err)
	}
	tmpPath := tmp.Name()
	keepTemp := false
	defer func() {
		if !keepTemp {
			os.Remove(tmpPath)
		}
	}()

	for _, chunk := range [][][]byte{header, body} {
		for _, line := range chunk {
			if _, err := tmp.Write(line); err != nil {
				tmp.Close()
				return troikaerrors.NewRunError("cannot write generated script", err)
			}
		}
	}
	if err := tmp.Chmod(info.Mode()); err != nil {
		tmp.Close()
		return troikaerrors.NewRunError("cannot set generated script permissions", err)
	}
	if err := tmp.Close(); err != nil {
		return troikaerrors.NewRunError("cannot close generated script", err)
	}

	if err := os.Rename(tmpPath, scriptPath); err != nil {
		return troikaerrors.NewRunError("cannot replace script with generated version", err)
	}
	keepTemp = true

	origPath := scriptPath + ".orig"
	if _, err := os.Stat(origPath); err == nil {
		slog.Warn("overwriting existing backup script", "path", origPath)
	}
	if err := os.WriteFile(origPath, original, info.Mode()); err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot write backup script %q", origPath), err)
	}
	return nil
}
