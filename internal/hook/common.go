// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hook

import (
	"fmt"
	"path/filepath"

	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/signalutil"
)

func init() {
	PreSubmit.Register("create_output_dir", CreateOutputDir)
	PreSubmit.Register("remove_previous_output", RemovePreviousOutput)
	PreSubmit.Register("copy_orig_script", CopyOrigScript)
	AtExit.Register("copy_submit_logfile", CopySubmitLogfile)
	AtExit.Register("copy_kill_logfile", CopyKillLogfile)
	AtStartup.Register("check_connection", CheckConnection)
}

// CreateOutputDir makes sure the output file's parent directory exists on
// the site's host before submission.
func CreateOutputDir(conn connection.Connection, script, output string, dryrun bool) error {
	if output == "" {
		return nil
	}
	dir := filepath.Dir(output)
	proc, err := conn.Execute([]string{"mkdir", "-p", dir}, connection.ExecOptions{Dryrun: dryrun})
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
	return signalutil.CheckRetcode(code, "output directory creation", "")
}

// RemovePreviousOutput deletes any output file left over from a previous
// submission, so monitoring tools do not mistake stale output for the
// new run's.
func RemovePreviousOutput(conn connection.Connection, script, output string, dryrun bool) error {
	if output == "" {
		return nil
	}
	proc, err := conn.Execute([]string{"rm", "-f", output}, connection.ExecOptions{Dryrun: dryrun})
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
	return signalutil.CheckRetcode(code, "previous output removal", "")
}

// CopyOrigScript copies the pre-translation backup of the submitted
// script (the ".orig" side file) alongside the job's output, so it can be
// recovered later, e.g. by abort_on_ecflow after the working copy has
// been cleaned up.
func CopyOrigScript(conn connection.Connection, script, output string, dryrun bool) error {
	if output == "" {
		return nil
	}
	origScript := script + ".orig"
	return conn.SendFile(origScript, filepath.Join(filepath.Dir(output), filepath.Base(origScript)), dryrun)
}

// CopySubmitLogfile copies the submission logfile to the job's output
// directory once a job has been submitted.
func CopySubmitLogfile(conn connection.Connection, action, siteName, output string, sts int, logfile string, dryrun bool) error {
	return copyExitLogfile("submit", conn, action, output, logfile, dryrun)
}

// CopyKillLogfile copies the kill logfile to the job's output directory
// once a kill has been attempted.
func CopyKillLogfile(conn connection.Connection, action, siteName, output string, sts int, logfile string, dryrun bool) error {
	return copyExitLogfile("kill", conn, action, output, logfile, dryrun)
}

func copyExitLogfile(want string, conn connection.Connection, action, output, logfile string, dryrun bool) error {
	if action != want || logfile == "" || output == "" {
		return nil
	}
	return conn.SendFile(logfile, filepath.Join(filepath.Dir(output), filepath.Base(logfile)), dryrun)
}

// CheckConnection verifies the site's connection works before the
// operation proceeds, interrupting it on failure.
func CheckConnection(conn connection.Connection, action, siteName string, dryrun bool) (bool, error) {
	ok, err := conn.CheckStatus(dryrun)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, troikaerrors.NewRunError(
			fmt.Sprintf("connection check failed for site %q", siteName), nil)
	}
	return false, nil
}
