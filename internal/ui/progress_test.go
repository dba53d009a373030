// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"bytes"
	"testing"
)

func TestNewProgressConfig_Quiet(t *testing.T) {
	cfg := NewProgressConfig(true, false)
	if cfg.Enabled {
		t.Error("quiet=true should disable progress regardless of TTY")
	}
}

func TestNewSpinner_Disabled(t *testing.T) {
	cfg := ProgressConfig{Enabled: false, Writer: &bytes.Buffer{}}
	bar := NewSpinner(cfg, "waiting")
	if bar == nil {
		t.Fatal("NewSpinner returned nil")
	}
	// Must be safe to drive even though output is discarded.
	_ = bar.Add(1)
}

func TestNewWaitBar_Disabled(t *testing.T) {
	cfg := ProgressConfig{Enabled: false, Writer: &bytes.Buffer{}}
	bar := NewWaitBar(cfg, 3, "kill sequence")
	if bar == nil {
		t.Fatal("NewWaitBar returned nil")
	}
	_ = bar.Add(1)
}

func TestNewWaitBar_Enabled(t *testing.T) {
	var buf bytes.Buffer
	cfg := ProgressConfig{Enabled: true, Writer: &buf, NoColor: true}
	bar := NewWaitBar(cfg, 2, "kill sequence")
	_ = bar.Add(1)
	_ = bar.Finish()
}
