package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesCategoryAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Output: &buf, NoColor: true})
	require.NoError(t, err)

	l.Info("scraper", "fetched calendar page")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "[SCRAPER")
	assert.Contains(t, out, "fetched calendar page")
	assert.Contains(t, out, "logger_test.go")
}

func TestLogger_MinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Output: &buf, NoColor: true, MinLevel: WARN})
	require.NoError(t, err)

	l.Debug("APP", "debug line")
	l.Info("APP", "info line")
	l.Warn("APP", "warn line")
	l.Error("APP", "error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestLogger_FileOutputIsJSON(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Options{Output: &buf, NoColor: true, Dir: dir, Service: "test"})
	require.NoError(t, err)

	l.Error("DATABASE", "commit failed")
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "test-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var last LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-2]), &last))
	assert.Equal(t, "ERROR", last.Level)
	assert.Equal(t, "DATABASE", last.Category)
	assert.Equal(t, "commit failed", last.Message)
}

func TestLogger_FatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Output: &buf, NoColor: true})
	require.NoError(t, err)

	code := -1
	l.exit = func(c int) { code = c }
	l.Fatal("CONFIG", "missing setting")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "missing setting")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Output: &buf, NoColor: true, MinLevel: DEBUG})
	require.NoError(t, err)

	cl := CronLogger{Logger: l}
	cl.Info("skip", "reason", "still running")
	cl.Error(errors.New("boom"), "job failed", "entry", 1)

	out := buf.String()
	assert.Contains(t, out, "[SCHEDULER")
	assert.Contains(t, out, "skip reason=still running")
	assert.Contains(t, out, "job failed: boom entry=1")
}
