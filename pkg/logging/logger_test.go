package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput records entries for assertions.
type captureOutput struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (c *captureOutput) Write(e LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureOutput) Sync() error  { return nil }
func (c *captureOutput) Close() error { return nil }

func (c *captureOutput) all() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry(nil), c.entries...)
}

func TestSeverityFiltering(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: WARN, Outputs: []Output{out}})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	entries := out.all()
	require.Len(t, entries, 2)
	assert.Equal(t, WARN, entries[0].Severity)
	assert.Equal(t, ERROR, entries[1].Severity)
}

func TestContextAnnotations(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})

	ctx := WithProject(WithDirectory(context.Background(), "/tmp/campaign"), "bridge")
	logger.Info(ctx, "solving")

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "bridge", entries[0].Project)
	assert.Equal(t, "/tmp/campaign", entries[0].Directory)
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, DEBUG, ParseSeverity("DEBUG"))
	assert.Equal(t, ERROR, ParseSeverity("ERROR"))
	// Unknown strings fall back to INFO.
	assert.Equal(t, INFO, ParseSeverity("VERBOSE"))
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "morpho.log")
	out, err := NewFileOutput(path)
	require.NoError(t, err)

	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})
	logger.Info(WithProject(context.Background(), "bridge"), "stored solution %d", 3)
	require.NoError(t, out.Sync())
	require.NoError(t, out.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "stored solution 3"))
	assert.True(t, strings.Contains(string(content), "project=bridge"))
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	out := &captureOutput{}
	SetLogger(NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}}))
	GetLogger().Info(context.Background(), "hello")
	assert.Len(t, out.all(), 1)
}
