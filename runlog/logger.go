// Package runlog provides structured logging for a bootstrap run: colored
// status lines on the console plus an append-only JSON-lines log file.
package runlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Logger defines the structured logging interface used across the run.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Success(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

var levelStyles = map[string]lipgloss.Style{
	"debug":   lipgloss.NewStyle().Faint(true),
	"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	"success": lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"warn":    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// RunLogger tees log events to a console writer and an optional append-only
// file. The file receives one JSON object per line; the console receives a
// colored human-readable line. Safe for concurrent use.
type RunLogger struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
	verbose bool
	runID   string
}

// New creates a RunLogger writing human-readable lines to console and JSON
// lines to filePath. An empty filePath disables the file sink. The file is
// opened append-only so a crashed or interrupted run never truncates prior
// history. Debug entries are only emitted when verbose is true.
func New(console io.Writer, filePath string, verbose bool, runID string) (*RunLogger, error) {
	l := &RunLogger{console: console, verbose: verbose, runID: runID}
	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// Close flushes and closes the file sink. The console writer is not owned
// by the logger and stays open.
func (l *RunLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *RunLogger) Info(msg string, fields map[string]any)    { l.log("info", msg, fields) }
func (l *RunLogger) Success(msg string, fields map[string]any) { l.log("success", msg, fields) }
func (l *RunLogger) Warn(msg string, fields map[string]any)    { l.log("warn", msg, fields) }
func (l *RunLogger) Error(msg string, fields map[string]any)   { l.log("error", msg, fields) }

func (l *RunLogger) Debug(msg string, fields map[string]any) {
	if !l.verbose {
		return
	}
	l.log("debug", msg, fields)
}

func (l *RunLogger) log(level, msg string, fields map[string]any) {
	now := time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.console != nil {
		style, ok := levelStyles[level]
		if !ok {
			style = lipgloss.NewStyle()
		}
		var b strings.Builder
		b.WriteString(now.Format("15:04:05"))
		b.WriteByte(' ')
		b.WriteString(style.Render(fmt.Sprintf("%-7s", strings.ToUpper(level))))
		b.WriteByte(' ')
		b.WriteString(msg)
		for _, k := range sortedKeys(fields) {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
		b.WriteByte('\n')
		io.WriteString(l.console, b.String()) //nolint:errcheck
	}

	if l.file != nil {
		entry := make(map[string]any, len(fields)+4)
		entry["time"] = now.Format(time.RFC3339)
		entry["level"] = level
		entry["msg"] = msg
		if l.runID != "" {
			entry["run_id"] = l.runID
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, _ := json.Marshal(entry)
		data = append(data, '\n')
		l.file.Write(data) //nolint:errcheck
	}
}

func sortedKeys(fields map[string]any) []string {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Discard is a Logger that drops every event. Useful in tests.
type Discard struct{}

func (Discard) Debug(string, map[string]any)   {}
func (Discard) Info(string, map[string]any)    {}
func (Discard) Success(string, map[string]any) {}
func (Discard) Warn(string, map[string]any)    {}
func (Discard) Error(string, map[string]any)   {}
