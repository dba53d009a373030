// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package semaphore implements the process-wide concurrency limit described
// in spec §5: a named counting semaphore scoped to a user (and, per Open
// Question (a), to the configured limit), backed by flock'd slot files
// rather than a true POSIX named semaphore, since Go has no portable
// binding for sem_open.
package semaphore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	troikaerrors "github.com/ecmwf/troika/internal/errors"
)

// pollInterval is how often Acquire retries the slot files while waiting.
const pollInterval = 200 * time.Millisecond

// Semaphore is a counting lock over N slot files under the OS temp dir,
// one file per concurrent holder. Acquiring means flock'ing any one free
// slot; releasing means unlocking and closing it.
type Semaphore struct {
	dir  string
	n    int
	slot *os.File
}

// scopeName builds the `/troika:<user>[:<N>]` scope name from spec §5,
// included in the on-disk directory name so unrelated limits/users never
// collide on the same slot files.
func scopeName(user string, limit int) string {
	name := fmt.Sprintf("troika:%s", user)
	if limit > 0 {
		name = fmt.Sprintf("%s:%d", name, limit)
	}
	return name
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(s)
}

// New creates (or reopens) the slot directory for user's semaphore with
// the given concurrency limit.
func New(user string, limit int) (*Semaphore, error) {
	if limit <= 0 {
		return nil, troikaerrors.NewConfigurationError(fmt.Sprintf("invalid concurrency limit %d", limit), nil)
	}
	dir := filepath.Join(os.TempDir(), sanitize(scopeName(user, limit)))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, troikaerrors.NewRunError(fmt.Sprintf("cannot create semaphore directory %q", dir), err)
	}
	return &Semaphore{dir: dir, n: limit}, nil
}

func (s *Semaphore) slotPath(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("slot-%d", i))
}

// tryAcquireOnce attempts to flock any one of the N slot files, returning
// the file it locked, or nil if all are currently held.
func (s *Semaphore) tryAcquireOnce() (*os.File, error) {
	for i := 1; i <= s.n; i++ {
		f, err := os.OpenFile(s.slotPath(i), os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, troikaerrors.NewRunError(fmt.Sprintf("cannot open semaphore slot %q", s.slotPath(i)), err)
		}
		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			f.Close()
			if err == syscall.EWOULDBLOCK {
				continue
			}
			return nil, troikaerrors.NewRunError(fmt.Sprintf("flock on %q failed", s.slotPath(i)), err)
		}
		return f, nil
	}
	return nil, nil
}

// Acquire takes a free slot, honoring spec §5's timeout semantics: nil
// blocks indefinitely, 0 fails fast without retrying, and a positive value
// polls until that many seconds have elapsed.
func (s *Semaphore) Acquire(timeout *int) error {
	f, err := s.tryAcquireOnce()
	if err != nil {
		return err
	}
	if f != nil {
		s.slot = f
		return nil
	}
	if timeout != nil && *timeout == 0 {
		return troikaerrors.NewRunError(fmt.Sprintf("concurrency limit reached (%d), not waiting", s.n), nil)
	}

	var deadline time.Time
	hasDeadline := timeout != nil && *timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(time.Duration(*timeout) * time.Second)
	}

	for {
		time.Sleep(pollInterval)
		f, err := s.tryAcquireOnce()
		if err != nil {
			return err
		}
		if f != nil {
			s.slot = f
			return nil
		}
		if hasDeadline && time.Now().After(deadline) {
			return troikaerrors.NewRunError(fmt.Sprintf("timed out after %ds waiting for a concurrency slot", *timeout), nil)
		}
	}
}

// Release frees the held slot. A no-op if Acquire was never called or
// already released.
func (s *Semaphore) Release() error {
	if s.slot == nil {
		return nil
	}
	_ = syscall.Flock(int(s.slot.Fd()), syscall.LOCK_UN)
	err := s.slot.Close()
	s.slot = nil
	if err != nil {
		return troikaerrors.NewRunError("cannot close semaphore slot", err)
	}
	return nil
}
