// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/signalutil"
)

func init() {
	Register("slurm", newSlurmSite)
}

// SlurmSite drives jobs through sbatch/squeue/scancel.
type SlurmSite struct {
	*BaseSite
	sbatchCommand []string
}

func newSlurmSite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
	base, err := NewBaseSite(name, cfg, conn, user)
	if err != nil {
		return nil, err
	}
	sbatch, err := signalutil.CommandAsList(cfg.Extra["sbatch_command"])
	if err != nil {
		return nil, err
	}
	if len(sbatch) == 0 {
		sbatch = []string{"sbatch"}
	}
	return &SlurmSite{BaseSite: base, sbatchCommand: sbatch}, nil
}

func (s *SlurmSite) TypeName() string { return "slurm" }

func (s *SlurmSite) NativeParser() parser.Parser { return parser.NewSlurmParser() }

func (s *SlurmSite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	table := map[string]generator.TranslateFunc{
		"billing_account":      generator.Template("--account=%s"),
		"error_file":           generator.Template("--error=%s"),
		"join_output_error":    generator.Ignore,
		"licenses":             generator.Template("--licenses=%s"),
		"mail_user":            generator.Template("--mail-user=%s"),
		"memory_per_cpu":       generator.Template("--mem-per-cpu=%s"),
		"memory_per_node":      generator.Template("--mem=%s"),
		"name":                 generator.Template("--job-name=%s"),
		"output_file":          generator.Template("--output=%s"),
		"partition":            generator.Template("--partition=%s"),
		"priority":             generator.Template("--priority=%s"),
		"queue":                generator.Template("--partition=%s"),
		"reservation":          generator.Template("--reservation=%s"),
		"tasks_per_node":       generator.Template("--ntasks-per-node=%s"),
		"threads_per_core":     generator.Template("--threads-per-core=%s"),
		"tmpdir_size":          generator.Template("--gres=tmp:%s"),
		"total_gpus":           generator.Template("--gpus=%s"),
		"total_nodes":          generator.Template("--nodes=%s"),
		"total_tasks":          generator.Template("--ntasks=%s"),
		"walltime":             generator.Template("--time=%s"),
		"working_dir":          generator.Template("--chdir=%s"),
		"cpus_per_task":        generator.Template("--cpus-per-task=%s"),
		"distribution":         generator.Template("--distribution=%s"),
		"gpus_per_node":        generator.Template("--gpus-per-node=%s"),
		"gpus_per_task":        generator.Template("--gpus-per-task=%s"),
		"exclusive":            slurmExclusive,
		"export_vars":          slurmExportVars,
		"enable_hyperthreading": slurmHyperthreading,
		"mail_type":            slurmMailType,
	}
	return s.MergeDirectiveTranslation([]byte("#SBATCH "), table)
}

func slurmExclusive(value []byte) ([][]byte, error) {
	v := strings.ToLower(string(value))
	if v == "" || v == "true" || v == "1" || v == "yes" {
		return [][]byte{[]byte("--exclusive")}, nil
	}
	if v == "false" || v == "0" || v == "no" {
		return nil, nil
	}
	return [][]byte{[]byte(fmt.Sprintf("--exclusive=%s", value))}, nil
}

func slurmExportVars(value []byte) ([][]byte, error) {
	v := strings.ToUpper(string(value))
	if v == "ALL" || v == "NONE" {
		return [][]byte{[]byte(fmt.Sprintf("--export=%s", v))}, nil
	}
	return [][]byte{[]byte(fmt.Sprintf("--export=%s", value))}, nil
}

func slurmHyperthreading(value []byte) ([][]byte, error) {
	if strings.ToLower(string(value)) == "true" {
		return [][]byte{[]byte("--hint=multithread")}, nil
	}
	return [][]byte{[]byte("--hint=nomultithread")}, nil
}

var slurmMailTypeMap = map[string]string{"none": "NONE", "begin": "BEGIN", "end": "END", "fail": "FAIL"}

func slurmMailType(value []byte) ([][]byte, error) {
	parts := strings.Split(string(value), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		mapped, ok := slurmMailTypeMap[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return nil, troikaerrors.NewConfigurationError(fmt.Sprintf("invalid mail_type value %q", p), nil)
		}
		out = append(out, mapped)
	}
	return [][]byte{[]byte(fmt.Sprintf("--mail-type=%s", strings.Join(out, ",")))}, nil
}

func (s *SlurmSite) CheckConnection(timeout int, dryrun bool) (bool, error) {
	return s.Conn.CheckStatus(dryrun)
}

var sbatchJidRE = regexp.MustCompile(`^(?:Submitted batch job )?(\d+)$`)

func (s *SlurmSite) Submit(script, user, output string, dryrun bool) error {
	if err := s.MakeOutputDir(output, dryrun); err != nil {
		return err
	}
	remote, err := s.StageScript(script, output, dryrun)
	if err != nil {
		return err
	}

	args := append([]string{}, s.sbatchCommand...)
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
	m := sbatchJidRE.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return troikaerrors.NewRunError(fmt.Sprintf("could not parse job id from sbatch output, check %s", script+".sub"), nil)
	}
	return s.WriteJidFile(script, output, m[1], dryrun)
}

// submitCapture runs the submit command, piping script over stdin when
// remote is empty (no staged copy). Stdout is captured to <script>.sub and
// stderr to <script>.suberr, the side files a submit failure points to;
// a dryrun call writes neither.
func submitCapture(conn connection.Connection, args []string, remote, script string, dryrun bool) (string, int, error) {
	opts := connection.ExecOptions{Dryrun: dryrun}

	if remote == "" {
		f, err := openScript(script)
		if err != nil {
			return "", 0, err
		}
		if f != nil {
			defer f.Close()
			opts.Stdin = f
		}
	}

	var subFile, suberrFile *os.File
	if !dryrun {
		subPath := script + ".sub"
		suberrPath := script + ".suberr"
		var err error
		subFile, err = os.Create(subPath)
		if err != nil {
			return "", 0, troikaerrors.NewRunError(fmt.Sprintf("cannot write sub file %q", subPath), err)
		}
		defer subFile.Close()
		suberrFile, err = os.Create(suberrPath)
		if err != nil {
			return "", 0, troikaerrors.NewRunError(fmt.Sprintf("cannot write suberr file %q", suberrPath), err)
		}
		defer suberrFile.Close()
		opts.Stdout = subFile
		opts.Stderr = suberrFile
	}

	proc, err := conn.Execute(args, opts)
	if err != nil {
		return "", 0, err
	}
	if dryrun {
		return "", 0, nil
	}

	code, err := proc.Wait()
	if err != nil {
		return "", 0, err
	}
	subFile.Close()
	suberrFile.Close()

	out, readErr := os.ReadFile(script + ".sub")
	if readErr != nil {
		return "", code, troikaerrors.NewRunError(fmt.Sprintf("cannot read sub file %q", script+".sub"), readErr)
	}
	return strings.TrimSpace(string(out)), code, nil
}

func (s *SlurmSite) Monitor(script, user, output, jid string, dryrun bool) error {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return err
		}
		jid = recovered
	}
	out, _, err := runCapture(s.Conn, []string{"squeue", "-h", "-o", "%T", "-j", jid}, dryrun)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	return WriteStatFile(script, []byte(out))
}

// Kill implements the three-step Slurm kill state machine from spec
// §4.5.2: query state, short-circuit pending jobs, then escalate through
// the configured kill sequence for running ones.
func (s *SlurmSite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
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

	state, err := s.queryState(jid)
	if err != nil {
		return jid, "", err
	}
	if state == "" || isInvalidJobID(state) {
		return jid, Vanished, nil
	}

	if state == "PENDING" {
		out, code, err := runCapture(s.Conn, []string{"scancel", "-t", "PENDING", jid}, false)
		if err != nil {
			return jid, "", err
		}
		if code != 0 && isInvalidJobID(out) {
			return jid, Vanished, nil
		}
		state, err = s.queryState(jid)
		if err != nil {
			return jid, "", err
		}
		if state == "" || state == "CANCELLED" {
			return jid, Cancelled, nil
		}
		if state == "PENDING" {
			return jid, "", troikaerrors.NewRunError(fmt.Sprintf("failed to cancel pending job %s", jid), nil)
		}
		// fall through to running-job handling for any other state
	}

	var status KillStatus
	for _, step := range s.KillSequence {
		if step.Wait > 0 {
			time.Sleep(step.Wait)
		}

		var args []string
		killedBySigkill := false
		if step.Signal == nil {
			args = []string{"scancel", jid}
			killedBySigkill = true
		} else if syscall.Signal(*step.Signal) == syscall.SIGKILL {
			args = []string{"scancel", "-f", "-s", fmt.Sprintf("%d", *step.Signal), jid}
			killedBySigkill = true
		} else {
			args = []string{"scancel", "-f", "-s", fmt.Sprintf("%d", *step.Signal), jid}
		}

		out, code, err := runCapture(s.Conn, args, false)
		if isInvalidJobID(out) {
			return jid, Vanished, nil
		}
		if err != nil || code != 0 {
			if status != "" {
				break
			}
			if err != nil {
				return jid, status, err
			}
			return jid, status, troikaerrors.NewRunError(fmt.Sprintf("scancel failed for job %s: %s", jid, out), nil)
		}

		if status == "" {
			if killedBySigkill {
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

func (s *SlurmSite) queryState(jid string) (string, error) {
	out, code, err := runCapture(s.Conn, []string{"squeue", "-h", "-o", "%T", "-j", jid}, false)
	if err != nil {
		return "", err
	}
	if code != 0 && isInvalidJobID(out) {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

func isInvalidJobID(s string) bool {
	return strings.Contains(strings.ToLower(s), "invalid job id")
}
