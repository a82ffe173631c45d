package ui

import (
	"testing"

	"github.com/five82/jobtail/internal/logview"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"héllo wörld", 7, "héll..."},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcdefgh", 4); got != "abcd" {
		t.Fatalf("truncateMiddle small limit = %q, want abcd", got)
	}
	got := truncateMiddle("/var/log/jobs/nightly-build.log", 16)
	if len([]rune(got)) != 16 {
		t.Fatalf("truncateMiddle length = %d, want 16 (%q)", len([]rune(got)), got)
	}
	if got[len(got)-4:] != ".log" {
		t.Fatalf("truncateMiddle = %q, want the file name end kept", got)
	}
}

func TestLineShift(t *testing.T) {
	mk := func(from, to uint64) []logview.Entry {
		var out []logview.Entry
		for i := from; i < to; i++ {
			out = append(out, logview.Entry{Index: i})
		}
		return out
	}
	cases := []struct {
		name          string
		before, after []logview.Entry
		want          int
	}{
		{"empty before", nil, mk(0, 10), 0},
		{"append only", mk(10, 20), mk(10, 25), 0},
		{"prepend", mk(100, 200), mk(50, 200), 50},
		{"trim", mk(0, 100), mk(30, 130), -30},
		{"prepend and append", mk(100, 200), mk(90, 210), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lineShift(tc.before, tc.after); got != tc.want {
				t.Fatalf("lineShift = %d, want %d", got, tc.want)
			}
		})
	}
}
