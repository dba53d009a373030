// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"
	"strings"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/signalutil"
)

func init() {
	Register("pbs", newPBSSite)
}

// PBSSite drives jobs through qsub/qstat/qdel/qsig.
type PBSSite struct {
	*BaseSite
	qsubCommand []string
}

func newPBSSite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
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
	return &PBSSite{BaseSite: base, qsubCommand: qsub}, nil
}

func (s *PBSSite) TypeName() string { return "pbs" }

func (s *PBSSite) NativeParser() parser.Parser { return parser.NewPBSParser() }

var pbsMailTypeMap = map[string]string{"none": "n", "begin": "b", "end": "e", "fail": "a"}

func pbsMailType(value []byte) ([][]byte, error) {
	parts := strings.Split(string(value), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		mapped, ok := pbsMailTypeMap[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return nil, troikaerrors.NewConfigurationError(fmt.Sprintf("invalid mail_type value %q", p), nil)
		}
		out = append(out, mapped)
	}
	return [][]byte{[]byte(fmt.Sprintf("-m %s", strings.Join(out, "")))}, nil
}

// pbsJoinOutputError is a constant directive: PBS genuinely emits "-j oe"
// regardless of the configured value, unlike Slurm where the equivalent
// directive is dropped entirely.
func pbsJoinOutputError(_ []byte) ([][]byte, error) {
	return [][]byte{[]byte("-j oe")}, nil
}

func pbsExportVars(value []byte) ([][]byte, error) {
	switch strings.ToLower(string(value)) {
	case "all":
		return [][]byte{[]byte("-V")}, nil
	case "none":
		return nil, nil
	default:
		return [][]byte{[]byte(fmt.Sprintf("-v %s", value))}, nil
	}
}

func (s *PBSSite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	table := map[string]generator.TranslateFunc{
		"billing_account":  generator.Template("-A %s"),
		"error_file":        generator.Template("-e %s"),
		"join_output_error": pbsJoinOutputError,
		"mail_user":         generator.Template("-M %s"),
		"name":              generator.Template("-N %s"),
		"output_file":       generator.Template("-o %s"),
		"queue":             generator.Template("-q %s"),
		"total_nodes":       generator.Template("-l select=%s"),
		"walltime":          generator.Template("-l walltime=%s"),
		"working_dir":       generator.Ignore,
		"export_vars":       pbsExportVars,
		"mail_type":         pbsMailType,
	}
	return s.MergeDirectiveTranslation([]byte("#PBS "), table)
}

func (s *PBSSite) CheckConnection(timeout int, dryrun bool) (bool, error) {
	return s.Conn.CheckStatus(dryrun)
}

func (s *PBSSite) Submit(script, user, output string, dryrun bool) error {
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
	jid := strings.TrimSpace(out)
	if jid == "" {
		return troikaerrors.NewRunError("qsub returned an empty job id", nil)
	}
	return s.WriteJidFile(script, output, jid, dryrun)
}

func (s *PBSSite) Monitor(script, user, output, jid string, dryrun bool) error {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return err
		}
		jid = recovered
	}
	out, _, err := runCapture(s.Conn, []string{"qstat", "-f", jid}, dryrun)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	return WriteStatFile(script, []byte(out))
}

// Kill follows the shared "first signal decides base status" rule: qdel
// with no signal or SIGKILL decides KILLED, anything else TERMINATED; a
// later failure once a status is decided just ends the loop.
func (s *PBSSite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return "", "", err
		}
		jid = recovered
	}
	if dryrun {
		return jid, Terminated, nil
	}

	// With no kill_sequence configured, a single plain qdel is issued.
	seq := s.KillSequence
	if len(seq) == 0 {
		seq = []KillStep{{}}
	}

	var status KillStatus
	for _, step := range seq {
		if step.Wait > 0 {
			sleepStep(step.Wait)
		}

		var args []string
		sigIsKill := true
		if step.Signal == nil {
			args = []string{"qdel", jid}
		} else {
			num := *step.Signal
			sigIsKill = isSIGKILL(num)
			args = []string{"qsig", "-s", fmt.Sprintf("%d", num), jid}
		}

		out, code, err := runCapture(s.Conn, args, false)
		if code != 0 || err != nil {
			if status != "" {
				break
			}
			if err != nil {
				return jid, status, err
			}
			return jid, status, troikaerrors.NewRunError(fmt.Sprintf("kill failed for job %s: %s", jid, out), nil)
		}

		if status == "" {
			if sigIsKill {
				status = Killed
			} else {
				status = Terminated
			}
		}
	}

	if status == "" {
		status = Terminated
	}
	return jid, status, nil
}
