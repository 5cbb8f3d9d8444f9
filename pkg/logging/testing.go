package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger is a logger whose JSON output is captured for assertions.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

// NewTestLogger creates a trace level logger writing into a buffer.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	previous := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	buf := &bytes.Buffer{}
	logger := New(buf).Level(zerolog.TraceLevel)
	return &TestLogger{Logger: &logger, Buffer: buf}
}

// Output returns everything logged so far.
func (tl *TestLogger) Output() string {
	return tl.Buffer.String()
}

// Lines returns one entry per log event.
func (tl *TestLogger) Lines() []string {
	out := strings.TrimSpace(tl.Output())
	if out == "" {
		return []string{}
	}
	return strings.Split(out, "\n")
}

// Events decodes the captured events.
func (tl *TestLogger) Events(t testing.TB) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range tl.Lines() {
		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, line)
		}
		events = append(events, event)
	}
	return events
}

// Messages returns the messages logged at level, in order.
func (tl *TestLogger) Messages(t testing.TB, level zerolog.Level) []string {
	t.Helper()
	var out []string
	for _, event := range tl.Events(t) {
		if event[zerolog.LevelFieldName] == level.String() {
			msg, _ := event[zerolog.MessageFieldName].(string)
			out = append(out, msg)
		}
	}
	return out
}

// Contains reports whether substr appears in the output.
func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}

// ContainsAll reports whether every substring appears in the output.
func (tl *TestLogger) ContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !tl.Contains(s) {
			return false
		}
	}
	return true
}

// Count returns the number of events.
func (tl *TestLogger) Count() int {
	return len(tl.Lines())
}

// Clear drops the captured output.
func (tl *TestLogger) Clear() {
	tl.Buffer.Reset()
}

// AssertContains fails t when substr was not logged.
func (tl *TestLogger) AssertContains(t testing.TB, substr string) {
	t.Helper()
	if !tl.Contains(substr) {
		t.Errorf("log output does not contain %q\n%s", substr, tl.Output())
	}
}

// AssertNotContains fails t when substr was logged.
func (tl *TestLogger) AssertNotContains(t testing.TB, substr string) {
	t.Helper()
	if tl.Contains(substr) {
		t.Errorf("log output unexpectedly contains %q\n%s", substr, tl.Output())
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}
