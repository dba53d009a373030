// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"
	"os"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
)

func init() {
	Register("trimurti", newTrimurtiSite)
}

// TrimurtiSite hands a job off to an external routing helper instead of
// submitting it directly. The helper decides where the job actually runs;
// troika has no job id to monitor or kill afterwards.
type TrimurtiSite struct {
	*BaseSite
	trimurtiCommand []string
}

func newTrimurtiSite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
	base, err := NewBaseSite(name, cfg, conn, user)
	if err != nil {
		return nil, err
	}
	helper := cfg.Helper
	if helper == "" {
		helper = "trimurti"
	}
	return &TrimurtiSite{BaseSite: base, trimurtiCommand: []string{helper}}, nil
}

func (s *TrimurtiSite) TypeName() string { return "trimurti" }

func (s *TrimurtiSite) NativeParser() parser.Parser { return nil }

func (s *TrimurtiSite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	return nil, map[string]generator.TranslateFunc{}
}

func (s *TrimurtiSite) CheckConnection(timeout int, dryrun bool) (bool, error) {
	return s.Conn.CheckStatus(dryrun)
}

// Submit invokes the routing helper with "<user> <host> <script>
// <output>" and captures its stdout to <script>.sub. The helper is
// responsible for getting the job to wherever it actually runs.
func (s *TrimurtiSite) Submit(script, user, output string, dryrun bool) error {
	args := append([]string{}, s.trimurtiCommand...)
	args = append(args, user, s.Name, script, output)

	out, code, err := runCapture(s.Conn, args, dryrun)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	subPath := script + ".sub"
	if writeErr := os.WriteFile(subPath, []byte(out), 0o644); writeErr != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot write sub file %q", subPath), writeErr)
	}
	if code != 0 {
		return troikaerrors.NewRunError(fmt.Sprintf("trimurti helper failed with exit code %d, see %s", code, subPath), nil)
	}
	return nil
}

// Monitor is not supported: trimurti hands jobs off to a site troika does
// not track a job id for.
func (s *TrimurtiSite) Monitor(script, user, output, jid string, dryrun bool) error {
	return troikaerrors.NewConfigurationError(fmt.Sprintf("site %q does not support monitor", s.Name), nil)
}

// Kill is not supported for the same reason as Monitor.
func (s *TrimurtiSite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
	return "", "", troikaerrors.NewConfigurationError(fmt.Sprintf("site %q does not support kill", s.Name), nil)
}
