// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"
	"os"
	"strconv"
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
	Register("direct", newDirectSite)
}

// DirectSite runs the job as a plain process over its Connection,
// without any batch scheduler involved.
type DirectSite struct {
	*BaseSite
}

func newDirectSite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (Site, error) {
	base, err := NewBaseSite(name, cfg, conn, user)
	if err != nil {
		return nil, err
	}
	return &DirectSite{BaseSite: base}, nil
}

func (s *DirectSite) TypeName() string { return "direct" }

func (s *DirectSite) NativeParser() parser.Parser { return nil }

func (s *DirectSite) DirectiveTranslation() ([]byte, map[string]generator.TranslateFunc) {
	return s.MergeDirectiveTranslation(nil, map[string]generator.TranslateFunc{})
}

func (s *DirectSite) CheckConnection(timeout int, dryrun bool) (bool, error) {
	return s.Conn.CheckStatus(dryrun)
}

// Submit runs the script under bash, detached, with its output file as
// stdout. The spawned child's PID becomes the job id.
func (s *DirectSite) Submit(script, user, output string, dryrun bool) error {
	remote, err := s.StageScript(script, output, dryrun)
	if err != nil {
		return err
	}

	var args []string
	var opts connection.ExecOptions
	opts.Detach = true
	opts.Dryrun = dryrun

	if remote != "" {
		args = []string{"bash", remote}
	} else {
		args = []string{"bash", "-s"}
		f, err := os.Open(script)
		if err != nil {
			return troikaerrors.NewInvocationError(fmt.Sprintf("cannot open script %q", script), err)
		}
		defer f.Close()
		opts.Stdin = f
	}

	if output != "" {
		if !dryrun {
			outf, err := os.Create(output)
			if err != nil {
				return troikaerrors.NewRunError(fmt.Sprintf("cannot create output file %q", output), err)
			}
			defer outf.Close()
			opts.Stdout = outf
		}
	}

	proc, err := s.Conn.Execute(args, opts)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	return s.WriteJidFile(script, output, strconv.Itoa(proc.PID()), dryrun)
}

// Monitor runs ps on the connection's parent host (the host that spawned
// the process, not the shell it ran in) and records the raw output.
func (s *DirectSite) Monitor(script, user, output, jid string, dryrun bool) error {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return err
		}
		jid = recovered
	}

	parent := s.Conn.GetParent()
	out, _, err := runCapture(parent, []string{"ps", "-lyfp", jid}, dryrun)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	return WriteStatFile(script, []byte(out))
}

// Kill iterates the configured kill sequence, delivering each signal via
// "kill" on the process's spawning host.
func (s *DirectSite) Kill(script, user, output, jid string, dryrun bool) (string, KillStatus, error) {
	if jid == "" {
		recovered, err := s.ReadJidFile(script, output)
		if err != nil {
			return "", "", err
		}
		jid = recovered
	}
	if _, err := strconv.Atoi(jid); err != nil {
		return jid, "", troikaerrors.NewRunError(fmt.Sprintf("invalid job id %q", jid), nil)
	}

	parent := s.Conn.GetParent()
	var status KillStatus

	for i, step := range s.KillSequence {
		if step.Wait > 0 && !dryrun {
			time.Sleep(step.Wait)
		}

		sigNum := syscall.SIGTERM
		sigArg := "-TERM"
		if step.Signal != nil {
			sigNum = syscall.Signal(*step.Signal)
			name, err := signalutil.SignalName(*step.Signal)
			if err != nil {
				return jid, status, err
			}
			sigArg = "-" + strings.TrimPrefix(name, "SIG")
		}

		out, code, err := runCapture(parent, []string{"kill", sigArg, jid}, dryrun)
		if dryrun {
			continue
		}
		if err != nil {
			if status != "" {
				break
			}
			return jid, status, err
		}
		if code != 0 {
			if strings.Contains(strings.ToLower(out), "no such process") {
				if i == 0 {
					return jid, Vanished, nil
				}
				break
			}
			if status != "" {
				break
			}
			return jid, status, troikaerrors.NewRunError(fmt.Sprintf("failed to signal process %s", jid), nil)
		}

		if sigNum == syscall.SIGKILL {
			status = Killed
		} else if status == "" {
			status = Terminated
		}
	}

	if status == "" {
		status = Terminated
	}
	return jid, status, nil
}
