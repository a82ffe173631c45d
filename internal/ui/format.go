package ui

import (
	"regexp"
	"strings"
	"time"

	"github.com/five82/jobtail/internal/logview"
)

const entryTimeLayout = "01-02 15:04:05"

// noTimestamp fills the time column for entries without a timestamp.
var noTimestamp = strings.Repeat("-", len(entryTimeLayout))

var (
	levelRe        = regexp.MustCompile(`\b(DEBUG|INFO|WARN|WARNING|ERROR|FATAL)\b`)
	messageCleaner = strings.NewReplacer("\r", "", "\n", " ", "\t", "    ")
)

// FormatTimestamp renders t in local time as "01-02 15:04:05".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return noTimestamp
	}
	return t.Local().Format(entryTimeLayout)
}

// FormatLine renders an entry as a single plain-text line.
func FormatLine(e logview.Entry) string {
	return FormatTimestamp(e.Timestamp) + " " + cleanMessage(e.Message)
}

// cleanMessage flattens a message onto one line.
func cleanMessage(msg string) string {
	return messageCleaner.Replace(strings.TrimRight(msg, "\r\n"))
}

// messageLevel returns the first log level mentioned in msg.
func messageLevel(msg string) string {
	m := levelRe.FindString(msg)
	if m == "WARNING" {
		return "WARN"
	}
	return m
}
