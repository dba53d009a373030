// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/signalutil"
)

func init() {
	Register("sge", newSGESite)
}

// SGESite drives jobs through Sun/Son-of-Grid-Engine's qsub/qdel.
type SGESite struct {
	*BaseSite
	qsubCommand []string
}

func newSGESite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
	base, err := NewBaseSite(name, cfg, conn, user)
	if err != nil {
		return nil, err
	}
	qsub, err := signalutil.CommandAsList(cfg.Extra["qsub_command"])
	if err != nil {
		return nil, err
	}
	if len(qsub) == 0 {
		qsub = []string{"qsub"}
	}
	return &SGESite{BaseSite: base, qsubCommand: qsub}, nil
}

func (s *SGESite) TypeName() string { return "sge" }

func (s *SGESite) NativeParser() parser.Parser { return parser.NewSGEParser() }

func (s *SGESite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	table := map[string]generator.TranslateFunc{
		"error_file":        generator.Template("-e %s"),
		"join_output_error": sgeJoinOutputError,
		"mail_user":         generator.Template("-M %s"),
		"name":              generator.Template("-N %s"),
		"output_file":       generator.Template("-o %s"),
		"queue":             generator.Template("-q %s"),
		"walltime":          generator.Template("-l h_rt=%s"),
		"working_dir":       generator.Template("-wd %s"),
		"export_vars":       sgeExportVars,
		"mail_type":         sgeMailType,
	}
	return s.MergeDirectiveTranslation([]byte("#$ "), table)
}

// sgeJoinOutputError is a constant directive, independent of the
// configured value.
func sgeJoinOutputError(_ []byte) ([][]byte, error) {
	return [][]byte{[]byte("-j y")}, nil
}

func sgeExportVars(value []byte) ([][]byte, error) {
	switch strings.ToLower(string(value)) {
	case "all":
		return [][]byte{[]byte("-V")}, nil
	case "none":
		return nil, nil
	default:
		return [][]byte{[]byte(fmt.Sprintf("-v %s", value))}, nil
	}
}

var sgeMailTypeMap = map[string]string{"none": "n", "begin": "b", "end": "e", "fail": "a"}

func sgeMailType(value []byte) ([][]byte, error) {
	parts := strings.Split(string(value), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		mapped, ok := sgeMailTypeMap[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return nil, troikaerrors.NewConfigurationError(fmt.Sprintf("invalid mail_type value %q", p), nil)
		}
		out = append(out, mapped)
	}
	return [][]byte{[]byte(fmt.Sprintf("-m %s", strings.Join(out, "")))}, nil
}

func (s *SGESite) CheckConnection(timeout int, dryrun bool) (bool, error) {
	return s.Conn.CheckStatus(dryrun)
}

var sgeJidRE = regexp.MustCompile(`(?:Your job )?(\d+)`)

func (s *SGESite) Submit(script, user, output string, dryrun bool) error {
	if err := s.MakeOutputDir(output, dryrun); err != nil {
		return err
	}
	remote, err := s.StageScript(script, output, dryrun)
	if err != nil {
		return err
	}
	args := append([]string{}, s.qsubCommand...)
	if remote != "" {
		args = append(args, remote)
	}
	out, code, err := submitCapture(s.Conn, args, remote, script, dryrun)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	if code != 0 {
		return signalutil.CheckRetcode(code, "Submission",
			fmt.Sprintf("check %s and %s", script+".sub", script+".suberr"))
	}
	m := sgeJidRE.FindStringSubmatch(out)
	if m == nil {
		return troikaerrors.NewRunError(fmt.Sprintf("could not parse job id from qsub output, check %s", script+".sub"), nil)
	}
	return s.WriteJidFile(script, output, m[1], dryrun)
}

func (s *SGESite) Monitor(script, user, output, jid string, dryrun bool) error {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return err
		}
		jid = recovered
	}
	out, _, err := runCapture(s.Conn, []string{"qstat", "-j", jid}, dryrun)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	return WriteStatFile(script, []byte(out))
}

// Kill is a single qdel: success always reports KILLED.
func (s *SGESite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return "", "", err
		}
		jid = recovered
	}
	if dryrun {
		return jid, Killed, nil
	}

	out, code, err := runCapture(s.Conn, []string{"qdel", jid}, false)
	if err != nil {
		return jid, "", err
	}
	if code != 0 {
		return jid, "", troikaerrors.NewRunError(fmt.Sprintf("qdel failed for job %s: %s", jid, out), nil)
	}
	return jid, Killed, nil
}
