package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// SessionFormatter renders the user-facing line format: [15:04:05] message
type SessionFormatter struct{}

func (f *SessionFormatter) Format(entry *LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", entry.Timestamp.Format("15:04:05"), entry.Message)

	if entry.Error != nil {
		fmt.Fprintf(&b, ": %v", entry.Error)
	}

	if len(entry.Context) > 0 {
		keys := make([]string, 0, len(entry.Context))
		for k := range entry.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Context[k])
		}
	}

	b.WriteByte('\n')
	return b.String()
}

// OpenFileOutput opens path for appending, creating parent directories
func OpenFileOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// SinkFunc adapts a per-line callback, such as a GUI log pane, to io.Writer
type SinkFunc func(line string)

func (f SinkFunc) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		f(line)
	}
	return len(p), nil
}

// Buffer collects written lines and is safe for concurrent use
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		b.lines = append(b.lines, line)
	}
	return len(p), nil
}

// Lines returns a copy of everything written so far
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Contains reports whether any line contains substr
func (b *Buffer) Contains(substr string) bool {
	for _, line := range b.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
