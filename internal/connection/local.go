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

package connection

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

// LocalConnection runs commands on the local host, wrapping os/exec the
// same way the teacher's cmd/cie/start.go runCommand/checkDocker helpers
// do: build an *exec.Cmd, wire its streams, run or start it.
type LocalConnection struct{}

// NewLocalConnection returns a Connection that runs everything on the
// local host.
func NewLocalConnection() *LocalConnection { return &LocalConnection{} }

func (c *LocalConnection) String() string { return "LocalConnection()" }

func (c *LocalConnection) IsLocal() bool { return true }

func (c *LocalConnection) GetParent() Connection { return c }

func (c *LocalConnection) Execute(command []string, opts ExecOptions) (Process, error) {
	if len(command) == 0 {
		return nil, troikaerrors.NewInvocationError("cannot execute an empty command", nil)
	}
	if opts.Dryrun {
		slog.Info("execute", "command", strings.Join(command, " "))
		return nil, nil
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = opts.Cwd
	if opts.Detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}
	if opts.Env != nil {
		env := os.Environ()
		for k, v := range opts.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	proc := &localProcess{cmd: cmd}

	switch v := opts.Stdin.(type) {
	case nil:
		cmd.Stdin = nil
	case *pipeSentinel:
		w, err := cmd.StdinPipe()
		if err != nil {
			return nil, troikaerrors.NewRunError("failed to open stdin pipe", err)
		}
		proc.stdin = w
	case io.Reader:
		cmd.Stdin = v
	default:
		return nil, troikaerrors.NewInvocationError(fmt.Sprintf("unsupported stdin value %T", v), nil)
	}

	stdoutWired, err := wireOutput(cmd, &cmd.Stdout, opts.Stdout, func(r io.ReadCloser) { proc.stdout = r }, cmd.StdoutPipe)
	if err != nil {
		return nil, err
	}
	if opts.Stderr == nil && stdoutWired {
		cmd.Stderr = cmd.Stdout
	} else if _, err := wireOutput(cmd, &cmd.Stderr, opts.Stderr, func(r io.ReadCloser) { proc.stderr = r }, cmd.StderrPipe); err != nil {
		return nil, err
	}

	slog.Debug("executing", "command", strings.Join(command, " "))
	if err := cmd.Start(); err != nil {
		return nil, troikaerrors.NewRunError(fmt.Sprintf("failed to start %q", command[0]), err)
	}
	slog.Debug("child started", "pid", cmd.Process.Pid)
	return proc, nil
}

// wireOutput sets *field (cmd.Stdout or cmd.Stderr) from the requested
// value, opening a real pipe via openPipe when PIPE was requested. It
// reports whether an explicit writer (not /dev/null) ended up wired.
func wireOutput(cmd *exec.Cmd, field *io.Writer, value any, store func(io.ReadCloser), openPipe func() (io.ReadCloser, error)) (bool, error) {
	switch v := value.(type) {
	case nil:
		*field = io.Discard
		return false, nil
	case *pipeSentinel:
		r, err := openPipe()
		if err != nil {
			return false, troikaerrors.NewRunError("failed to open output pipe", err)
		}
		store(r)
		return true, nil
	case io.Writer:
		*field = v
		return true, nil
	default:
		return false, troikaerrors.NewInvocationError(fmt.Sprintf("unsupported stream value %T", value), nil)
	}
}

type localProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *localProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *localProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *localProcess) Stderr() io.ReadCloser { return p.stderr }
func (p *localProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *localProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (c *LocalConnection) SendFile(src, dst string, dryrun bool) error {
	if dryrun {
		slog.Info("copy", "src", src, "dst", dst)
		return nil
	}
	return copyFile(src, dst)
}

func (c *LocalConnection) GetFile(src, dst string, dryrun bool) error {
	return c.SendFile(src, dst, dryrun)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot open %q", src), err)
	}
	defer in.Close()

	// Copying a file onto itself is a no-op; os.Create would truncate it.
	if si, err := in.Stat(); err == nil {
		if di, err := os.Stat(dst); err == nil && os.SameFile(si, di) {
			return nil
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot create %q", dst), err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("failed copying %q to %q", src, dst), err)
	}
	return out.Close()
}

func (c *LocalConnection) CheckStatus(dryrun bool) (bool, error) {
	return checkStatus(c, dryrun)
}

// checkStatus is shared by LocalConnection and SSHConnection: run "true"
// and report whether it exited zero.
func checkStatus(conn Connection, dryrun bool) (bool, error) {
	proc, err := conn.Execute([]string{"true"}, ExecOptions{Stdout: PIPE, Stderr: PIPE, Dryrun: dryrun})
	if err != nil {
		return false, err
	}
	if dryrun {
		return true, nil
	}
	code, err := proc.Wait()
	if err != nil {
		return false, nil
	}
	return code == 0, nil
}
