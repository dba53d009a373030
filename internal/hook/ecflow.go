// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecmwf/troika/internal/connection"
	"github.com/ecmwf/troika/internal/directive"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/parser"
	"github.com/ecmwf/troika/internal/signalutil"
)

func init() {
	PostKill.Register("abort_on_ecflow", AbortOnEcflow)
}

// ecflowRequiredVars maps a Troika directive name to the ecFlow client
// environment variable it feeds, and whether its absence is an error.
var ecflowRequiredVars = []struct {
	directive string
	env       string
	required  bool
}{
	{"ecflow_name", "ECF_NAME", true},
	{"ecflow_pass", "ECF_PASS", true},
	{"ecflow_host", "ECF_HOST", false},
	{"ecflow_port", "ECF_PORT", false},
}

// AbortOnEcflow issues an ecflow_client --abort on behalf of a job that
// was killed or cancelled without the chance to tell ecFlow itself. It
// recovers the job's ecFlow credentials from the backed-up original
// script, copying it back from the output directory first if needed.
func AbortOnEcflow(conn connection.Connection, script, output, jid, cancelStatus string, dryrun bool) error {
	var msg string
	switch cancelStatus {
	case "CANCELLED":
		msg = "Cancelled before starting"
	case "KILLED":
		msg = "Killed forcefully"
	case "VANISHED":
		msg = "Vanished unexpectedly"
	case "TERMINATED":
		return nil
	default:
		return troikaerrors.NewInvocationError(
			fmt.Sprintf("abort_on_ecflow: unknown cancel status %q", cancelStatus), nil)
	}

	origScript := script + ".orig"
	if _, err := os.Stat(origScript); os.IsNotExist(err) && output != "" {
		origScriptCopy := filepath.Join(filepath.Dir(output), filepath.Base(origScript))
		if err := conn.GetFile(origScriptCopy, origScript, dryrun); err != nil {
			return troikaerrors.NewRunError(fmt.Sprintf("could not copy back original script: %v", err), err)
		}
	}

	directives, env, err := readEcflowEnv(origScript, script)
	if err != nil {
		return err
	}

	clientCmd := "ecflow_client"
	if raw, ok := directives.Get("ecflow_client"); ok {
		clientCmd = string(raw)
	}
	cmd := []string{clientCmd, fmt.Sprintf("--abort=%s", msg)}

	target := conn
	if !conn.IsLocal() {
		if _, hasHost := env["ECF_HOST"]; !hasHost {
			target = connection.NewLocalConnection()
		}
	}

	proc, err := target.Execute(cmd, connection.ExecOptions{
		Stdout: connection.PIPE,
		Stderr: connection.PIPE,
		Env:    env,
		Dryrun: dryrun,
	})
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	code, err := proc.Wait()
	if err != nil {
		return err
	}
	return signalutil.CheckRetcode(code, "abort", "")
}

func readEcflowEnv(origScript, script string) (*directive.Map, map[string]string, error) {
	f, err := os.Open(origScript)
	if err != nil {
		return nil, nil, troikaerrors.NewRunError(fmt.Sprintf("cannot open backed-up script %q", origScript), err)
	}
	defer f.Close()

	dp := parser.NewDirectiveParser()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := append(scanner.Bytes(), '\n')
		if _, err := dp.Feed(line); err != nil {
			return nil, nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, troikaerrors.NewRunError(fmt.Sprintf("failed reading %q", origScript), err)
	}

	env := make(map[string]string)
	var missing []string
	for _, entry := range ecflowRequiredVars {
		raw, ok := dp.Data.Get(entry.directive)
		if !ok {
			if entry.required {
				missing = append(missing, entry.directive)
			}
			continue
		}
		env[entry.env] = string(raw)
	}
	if len(missing) > 0 {
		return nil, nil, troikaerrors.NewRunError(
			fmt.Sprintf("abort_on_ecflow could not find %s defined in script %s", strings.Join(missing, ", "), script), nil)
	}
	return dp.Data, env, nil
}
