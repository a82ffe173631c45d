package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.PollInterval != 2*time.Second || cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("intervals = %v/%v, want 2s/5s", cfg.PollInterval, cfg.RequestTimeout)
	}
	if cfg.InitialLoadCount != 100 || cfg.LoadMoreCount != 50 {
		t.Fatalf("page sizes = %d/%d, want 100/50", cfg.InitialLoadCount, cfg.LoadMoreCount)
	}
	if cfg.FollowThreshold != 2 || cfg.MaxEntries != 5000 || cfg.StickyDetach {
		t.Fatalf("follow settings = %d/%d/%v", cfg.FollowThreshold, cfg.MaxEntries, cfg.StickyDetach)
	}
	if cfg.LogLevel != log.InfoLevel {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}

	wantLogFile, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLogFile {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLogFile)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base = "  http://10.0.0.5:9999/api  "
poll_interval_ms = 500
request_timeout_ms = 1500
initial_load_count = 200
load_more_count = 25
follow_threshold = 4
sticky_detach = true
max_entries = 0
log_level = " DEBUG "
log_file = "  ~/.jobtail/debug.log  "
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "http://10.0.0.5:9999/api" {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, "http://10.0.0.5:9999/api")
	}
	if cfg.PollInterval != 500*time.Millisecond || cfg.RequestTimeout != 1500*time.Millisecond {
		t.Fatalf("intervals = %v/%v, want 500ms/1.5s", cfg.PollInterval, cfg.RequestTimeout)
	}
	if cfg.InitialLoadCount != 200 || cfg.LoadMoreCount != 25 {
		t.Fatalf("page sizes = %d/%d, want 200/25", cfg.InitialLoadCount, cfg.LoadMoreCount)
	}
	if cfg.FollowThreshold != 4 || !cfg.StickyDetach {
		t.Fatalf("follow = %d/%v, want 4/true", cfg.FollowThreshold, cfg.StickyDetach)
	}
	if cfg.MaxEntries != 0 {
		t.Fatalf("MaxEntries = %d, want 0 (trimming disabled)", cfg.MaxEntries)
	}
	if cfg.LogLevel != log.DebugLevel {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base = "   "
poll_interval_ms = 0
initial_load_count = -5
log_level = ""
log_file = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("Load = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_PollIntervalHasFloor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`poll_interval_ms = 5`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PollInterval != minPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, minPollInterval)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_base = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidLogLevelFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "chatty"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("Load error = %v, want log_level error", err)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestPath_DefaultsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := Path("")
	if err != nil {
		t.Fatalf("Path returned error: %v", err)
	}
	if got != filepath.Join(home, ".config/jobtail/config.toml") {
		t.Fatalf("Path = %q, want default under HOME", got)
	}
}
