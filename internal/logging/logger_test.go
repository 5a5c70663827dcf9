package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTextFormatterSortsContext(t *testing.T) {
	entry := &LogEntry{
		Timestamp: time.Date(2024, 3, 1, 9, 5, 7, 12_000_000, time.UTC),
		Level:     LogLevelWarn,
		Component: "Matcher",
		Message:   "below threshold",
		Error:     errors.New("boom"),
		Context:   map[string]interface{}{"score": 0.42, "path": "likai.png"},
	}

	got := (&TextFormatter{}).Format(entry)
	want := "[2024-03-01 09:05:07.012] WARN [Matcher] below threshold | error=boom | path=likai.png score=0.42\n"
	if got != want {
		t.Errorf("Format() =\n%q\nwant\n%q", got, want)
	}
}

func TestSessionFormatter(t *testing.T) {
	ts := time.Date(2024, 3, 1, 13, 2, 3, 0, time.Local)
	tests := []struct {
		name  string
		entry LogEntry
		want  string
	}{
		{"plain", LogEntry{Timestamp: ts, Message: "started"}, "[13:02:03] started\n"},
		{"error", LogEntry{Timestamp: ts, Message: "load failed", Error: errors.New("no file")}, "[13:02:03] load failed: no file\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (&SessionFormatter{}).Format(&tt.entry); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestLoggerFanOutSurvivesFailingOutput(t *testing.T) {
	var buf Buffer
	var sunk []string
	l := NewSessionLogger("session", failingWriter{}, &buf, SinkFunc(func(line string) {
		sunk = append(sunk, line)
	}))

	l.Info("one")
	l.Debug("hidden")
	l.Named("runner").Warnf("two %d", 2)

	lines := buf.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if !strings.HasSuffix(lines[1], "] two 2") {
		t.Errorf("unexpected second line %q", lines[1])
	}
	if len(sunk) != 2 {
		t.Errorf("sink received %d lines, want 2", len(sunk))
	}
}

func TestOpenFileOutputAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	for i := 0; i < 2; i++ {
		f, err := OpenFileOutput(path)
		if err != nil {
			t.Fatalf("OpenFileOutput failed: %v", err)
		}
		NewSessionLogger("app", f).Info("line")
		f.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if n := strings.Count(string(data), "line\n"); n != 2 {
		t.Errorf("expected 2 appended lines, got %d", n)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LogLevelDebug {
		t.Error("expected debug level")
	}
	if ParseLevel("verbose") != LogLevelInfo {
		t.Error("unknown level should default to INFO")
	}
}
