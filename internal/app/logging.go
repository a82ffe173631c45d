package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/five82/jobtail/internal/config"
)

const logTimeFormat = "2006-01-02 15:04:05"

// openLogFile returns a logger writing to cfg.LogFile. The TUI owns the
// terminal, so nothing is logged to stdout or stderr while it runs. An empty
// LogFile discards output.
func openLogFile(cfg config.Config) (*log.Logger, func(), error) {
	if cfg.LogFile == "" {
		return newLogger(io.Discard, cfg.LogLevel), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, cfg.LogLevel), func() { _ = f.Close() }, nil
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
	})
}
