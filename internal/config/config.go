package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds jobtail's settings.
type Config struct {
	APIBase          string
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	InitialLoadCount int64
	LoadMoreCount    int64
	FollowThreshold  int
	StickyDetach     bool
	MaxEntries       int
	LogLevel         log.Level
	LogFile          string
}

const (
	defaultConfigPath       = "~/.config/jobtail/config.toml"
	defaultAPIBase          = "http://127.0.0.1:8080/api"
	defaultPollInterval     = 2000 * time.Millisecond
	defaultRequestTimeout   = 5000 * time.Millisecond
	defaultInitialLoadCount = 100
	defaultLoadMoreCount    = 50
	defaultFollowThreshold  = 2
	defaultMaxEntries       = 5000
	defaultLogLevel         = log.InfoLevel
	defaultLogFile          = "~/.local/state/jobtail/jobtail.log"

	minPollInterval = 100 * time.Millisecond
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBase:          defaultAPIBase,
		PollInterval:     defaultPollInterval,
		RequestTimeout:   defaultRequestTimeout,
		InitialLoadCount: defaultInitialLoadCount,
		LoadMoreCount:    defaultLoadMoreCount,
		FollowThreshold:  defaultFollowThreshold,
		MaxEntries:       defaultMaxEntries,
		LogLevel:         defaultLogLevel,
		LogFile:          mustExpand(defaultLogFile),
	}
}

// Load locates and parses the jobtail config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase          string `toml:"api_base"`
		PollIntervalMS   int64  `toml:"poll_interval_ms"`
		RequestTimeoutMS int64  `toml:"request_timeout_ms"`
		InitialLoadCount int64  `toml:"initial_load_count"`
		LoadMoreCount    int64  `toml:"load_more_count"`
		FollowThreshold  int    `toml:"follow_threshold"`
		StickyDetach     bool   `toml:"sticky_detach"`
		MaxEntries       *int   `toml:"max_entries"`
		LogLevel         string `toml:"log_level"`
		LogFile          string `toml:"log_file"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	if raw.PollIntervalMS > 0 {
		cfg.PollInterval = max(minPollInterval, time.Duration(raw.PollIntervalMS)*time.Millisecond)
	}
	if raw.RequestTimeoutMS > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}
	if raw.InitialLoadCount > 0 {
		cfg.InitialLoadCount = raw.InitialLoadCount
	}
	if raw.LoadMoreCount > 0 {
		cfg.LoadMoreCount = raw.LoadMoreCount
	}
	if raw.FollowThreshold > 0 {
		cfg.FollowThreshold = raw.FollowThreshold
	}
	cfg.StickyDetach = raw.StickyDetach
	if raw.MaxEntries != nil && *raw.MaxEntries >= 0 {
		// 0 disables trimming
		cfg.MaxEntries = *raw.MaxEntries
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		level, err := log.ParseLevel(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("parse config: log_level %q: %w", v, err)
		}
		cfg.LogLevel = level
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}

	return cfg, nil
}

// Path returns the config file Load would read for path.
func Path(path string) (string, error) {
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
