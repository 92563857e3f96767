package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured record with its attributes flattened
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is an slog.Handler that keeps every record for assertions
// and echoes it to the test log. Handlers derived through With share the
// same record list.
type LogCapture struct {
	mu      *sync.Mutex
	records *[]LogRecord
	bound   []slog.Attr
	t       testing.TB
}

// NewTestLogger returns a logger that records into the returned capture
func NewTestLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	c := &LogCapture{mu: &sync.Mutex{}, records: &[]LogRecord{}, t: t}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	rec := LogRecord{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	for _, a := range c.bound {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	*c.records = append(*c.records, rec)
	c.mu.Unlock()

	c.t.Logf("%s %s %v", r.Level, r.Message, rec.Attrs)
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *c
	child.bound = append(append([]slog.Attr{}, c.bound...), attrs...)
	return &child
}

// WithGroup flattens groups; assertions look attributes up by bare key
func (c *LogCapture) WithGroup(string) slog.Handler { return c }

// Records returns the captured records, restricted to the given levels
// when any are passed
func (c *LogCapture) Records(levels ...slog.Level) []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LogRecord, 0, len(*c.records))
	for _, r := range *c.records {
		if len(levels) == 0 || containsLevel(levels, r.Level) {
			out = append(out, r)
		}
	}
	return out
}

func (c *LogCapture) Count() int {
	return len(c.Records())
}

func (c *LogCapture) Clear() {
	c.mu.Lock()
	*c.records = (*c.records)[:0]
	c.mu.Unlock()
}

// ContainsMessage reports whether any record's message contains substr
func (c *LogCapture) ContainsMessage(substr string) bool {
	for _, r := range c.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries key with exactly value
func (c *LogCapture) ContainsAttr(key string, value any) bool {
	for _, r := range c.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// AssertLogContains fails t unless a record at level mentions message
func AssertLogContains(t testing.TB, c *LogCapture, level slog.Level, message string) {
	t.Helper()
	for _, r := range c.Records(level) {
		if strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("no %s record mentions %q", level, message)
}

// AssertLogAttr fails t unless some record carries key=value
func AssertLogAttr(t testing.TB, c *LogCapture, key string, value any) {
	t.Helper()
	if !c.ContainsAttr(key, value) {
		t.Errorf("no record carries %s=%v", key, value)
	}
}

func containsLevel(levels []slog.Level, l slog.Level) bool {
	for _, level := range levels {
		if level == l {
			return true
		}
	}
	return false
}
