// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package site

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ecmwf/troika/internal/config"
	"github.com/ecmwf/troika/internal/connection"
	troikaerrors "github.com/ecmwf/troika/internal/errors"
	"github.com/ecmwf/troika/internal/generator"
	"github.com/ecmwf/troika/internal/signalutil"
)

// KillStep is one entry of a parsed kill_sequence: wait this long, then
// send this signal (nil meaning "plain cancel, no explicit signal").
type KillStep struct {
	Wait   time.Duration
	Signal *int
}

// BaseSite holds the configuration and helpers shared by every concrete
// site driver: kill sequence, output directory creation, jid-file
// persistence, and script staging.
type BaseSite struct {
	Name              string
	Conn              connection.Connection
	User              string
	KillSequence      []KillStep
	PmkdirCommand     []string
	CopyScript        bool
	CopyJid           bool
	directivePrefix   string
	directiveOverride map[string]any
}

// NewBaseSite parses the shared configuration fields common to every
// site type.
func NewBaseSite(name string, cfg config.SiteConfig, conn connection.Connection, user string) (*BaseSite, error) {
	seq, err := ParseKillSequence(cfg.KillSequence)
	if err != nil {
		return nil, err
	}
	pmkdir, err := signalutil.CommandAsList(cfg.PmkdirCommand)
	if err != nil {
		return nil, err
	}
	if len(pmkdir) == 0 {
		pmkdir = []string{"mkdir", "-p"}
	}
	copyScript := true
	if cfg.CopyScript != nil {
		copyScript = *cfg.CopyScript
	}
	copyJid := true
	if cfg.CopyJid != nil {
		copyJid = *cfg.CopyJid
	}
	override, _ := cfg.Extra["directive_translate"].(map[string]any)
	return &BaseSite{
		Name:              name,
		Conn:              conn,
		User:              user,
		KillSequence:      seq,
		PmkdirCommand:     pmkdir,
		CopyScript:        copyScript,
		CopyJid:           copyJid,
		directivePrefix:   cfg.DirectivePrefix,
		directiveOverride: override,
	}, nil
}

// MergeDirectiveTranslation overlays this site's configured
// directive_prefix/directive_translate overrides onto its class-default
// prefix and translate table. A directive_translate entry with a nil value
// maps that name to generator.Ignore; a string value becomes a %s
// template; anything else is left at the class default.
func (b *BaseSite) MergeDirectiveTranslation(prefix []byte, table map[string]generator.TranslateFunc) ([]byte, map[string]generator.TranslateFunc) {
	if b.directivePrefix != "" {
		prefix = []byte(b.directivePrefix)
	}
	if len(b.directiveOverride) == 0 {
		return prefix, table
	}
	merged := make(map[string]generator.TranslateFunc, len(table)+len(b.directiveOverride))
	for name, fn := range table {
		merged[name] = fn
	}
	for name, value := range b.directiveOverride {
		if value == nil {
			merged[name] = generator.Ignore
			continue
		}
		if format, ok := value.(string); ok {
			merged[name] = generator.Template(format)
		}
	}
	return prefix, merged
}

// ParseKillSequence turns the raw YAML kill_sequence value ([[wait,
// signal], ...]) into a slice of KillStep, normalising each signal.
func ParseKillSequence(raw []any) ([]KillStep, error) {
	steps := make([]KillStep, 0, len(raw))
	for i, entryAny := range raw {
		entry, ok := entryAny.([]any)
		if !ok || len(entry) == 0 || len(entry) > 2 {
			return nil, troikaerrors.NewConfigurationError(
				fmt.Sprintf("invalid kill_sequence entry %d: expected [wait, signal]", i), nil)
		}
		waitSeconds, err := toFloat(entry[0])
		if err != nil {
			return nil, troikaerrors.NewConfigurationError(
				fmt.Sprintf("invalid kill_sequence entry %d: bad wait value", i), err)
		}
		step := KillStep{Wait: time.Duration(waitSeconds * float64(time.Second))}
		if len(entry) == 2 && entry[1] != nil {
			sig, _, err := signalutil.NormaliseSignal(entry[1])
			if err != nil {
				return nil, troikaerrors.NewConfigurationError(
					fmt.Sprintf("invalid kill_sequence entry %d: bad signal", i), err)
			}
			step.Signal = &sig
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, troikaerrors.NewConfigurationError(fmt.Sprintf("expected a number, got %T", v), nil)
	}
}

// Connection returns the site's underlying connection, for callers (the
// controller's hook dispatch) that need it outside the Site interface
// proper.
func (b *BaseSite) Connection() connection.Connection { return b.Conn }

// MakeOutputDir runs the configured pmkdir_command over the connection to
// make sure output's parent directory exists.
func (b *BaseSite) MakeOutputDir(output string, dryrun bool) error {
	if output == "" {
		return nil
	}
	dir := filepath.Dir(output)
	args := append(append([]string{}, b.PmkdirCommand...), dir)
	proc, err := b.Conn.Execute(args, connection.ExecOptions{Stdout: connection.PIPE, Stderr: connection.PIPE, Dryrun: dryrun})
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

// WriteJidFile persists jid to <script>.jid, copying it to the remote
// output directory too when CopyJid is set.
func (b *BaseSite) WriteJidFile(script, output, jid string, dryrun bool) error {
	if dryrun {
		return nil
	}
	path := script + ".jid"
	if err := os.WriteFile(path, []byte(jid+"\n"), 0o644); err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot write jid file %q", path), err)
	}
	if b.CopyJid && output != "" {
		if err := b.Conn.SendFile(path, filepath.Join(filepath.Dir(output), filepath.Base(path)), false); err != nil {
			return err
		}
	}
	return nil
}

// ReadJidFile recovers a job id from <script>.jid, falling back to
// fetching the remote copy when CopyJid is set and the local read fails.
func (b *BaseSite) ReadJidFile(script, output string) (string, error) {
	path := script + ".jid"
	data, err := os.ReadFile(path)
	if err != nil {
		if b.CopyJid && output != "" {
			if getErr := b.Conn.GetFile(filepath.Join(filepath.Dir(output), filepath.Base(path)), path, false); getErr != nil {
				return "", troikaerrors.NewRunError(fmt.Sprintf("cannot recover jid file %q", path), getErr)
			}
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return "", troikaerrors.NewRunError(fmt.Sprintf("cannot read jid file %q", path), err)
		}
	}
	return strings.TrimSpace(string(data)), nil
}

// StageScript sends script to the remote output directory when CopyScript
// is set, returning the remote path to invoke the submit command with. An
// empty return value means the script must be piped over stdin instead.
func (b *BaseSite) StageScript(script, output string, dryrun bool) (string, error) {
	if !b.CopyScript {
		return "", nil
	}
	if output == "" {
		return "", troikaerrors.NewConfigurationError("copy_script requires an output path", nil)
	}
	remote := filepath.Join(filepath.Dir(output), filepath.Base(script))
	if err := b.Conn.SendFile(script, remote, dryrun); err != nil {
		return "", err
	}
	return remote, nil
}

// openScript opens script for reading, to pipe over a submit command's
// stdin when the site does not stage a remote copy. A dryrun caller
// passes an already-dry connection and never reaches here with a real
// script path missing from disk, but we still surface a clean invocation
// error instead of a bare os.PathError.
func openScript(script string) (*os.File, error) {
	f, err := os.Open(script)
	if err != nil {
		return nil, troikaerrors.NewInvocationError(fmt.Sprintf("cannot open script %q", script), err)
	}
	return f, nil
}

// WriteStatFile persists the raw monitor query output to <script>.stat.
func WriteStatFile(script string, data []byte) error {
	path := script + ".stat"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return troikaerrors.NewRunError(fmt.Sprintf("cannot write stat file %q", path), err)
	}
	return nil
}

// runCapture executes command on conn, waits for it, and returns its
// combined stdout as trimmed text alongside the exit code.
func runCapture(conn connection.Connection, command []string, dryrun bool) (string, int, error) {
	var out strings.Builder
	w := &writerShim{&out}
	proc, err := conn.Execute(command, connection.ExecOptions{Stdout: w, Stderr: w, Dryrun: dryrun})
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
	return strings.TrimSpace(out.String()), code, nil
}

// writerShim adapts a *strings.Builder to io.Writer without exposing
// strings.Builder's other methods across package boundaries.
type writerShim struct{ b *strings.Builder }

func (w *writerShim) Write(p []byte) (int, error) { return w.b.Write(p) }

// sleepStep pauses for d, the kill-sequence's wait duration between
// escalation attempts.
func sleepStep(d time.Duration) { time.Sleep(d) }

// isSIGKILL reports whether a normalised signal number is SIGKILL, the
// signal that always decides a KILLED status across site kill sequences.
func isSIGKILL(sig int) bool { return syscall.Signal(sig) == syscall.SIGKILL }
