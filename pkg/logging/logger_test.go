package logging_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanehh/datapipe/pkg/logging"
	"github.com/ivanehh/datapipe/pkg/netcom"
)

func TestConfigMinLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	} {
		assert.Equal(t, want, logging.Config{Level: level}.MinLevel(), level)
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New("test", logging.Config{Level: "info"},
		logging.WithConsole(&buf), logging.WithPipeline("daily", "api"))
	assert.Equal(t, "test", l.Name())

	l.Debug("hidden")
	l.Info("visible", "endpoint", "items")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "visible", record["msg"])
	assert.Equal(t, "items", record["endpoint"])
	assert.Equal(t, map[string]any{"name": "daily", "source": "api"}, record["pipeline"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	parent := logging.New("test", logging.Config{}, logging.WithConsole(&buf))
	child := parent.With("path", "out.json")
	assert.Equal(t, "test", child.Name())

	child.Info("stored")
	parent.Info("done")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "out.json", first["path"])
	assert.NotContains(t, second, "path")
	assert.NoError(t, child.Close())
}

func TestErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New("test", logging.Config{}, logging.WithConsole(&buf))

	err := fmt.Errorf("fetch failed: %w", &netcom.HTTPError{StatusCode: 502, URL: "http://x/y"})
	l.Error("fetch", err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "fetch failed: HTTP 502 for URL http://x/y", record["error"])
	details, ok := record["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(502), details["status"])
}

func TestLogFileWrite(t *testing.T) {
	dir := t.TempDir()
	l := logging.New("test", logging.Config{Level: "debug", Folder: dir}, logging.WithConsole(nil))

	for i := 0; i < logging.MaxStackSize+1; i++ {
		l.Info("test_message", "message_number", i)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "test"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	report, err := l.Records(0)
	require.NoError(t, err)
	today := civil.DateOf(time.Now())
	assert.Len(t, report[today], logging.MaxStackSize+1)

	require.NoError(t, l.Close())
	content, err := os.ReadFile(filepath.Join(dir, "test", entries[0].Name()))
	require.NoError(t, err)
	var persisted []logging.LogRecord
	require.NoError(t, json.Unmarshal(content, &persisted))
	assert.Len(t, persisted, logging.MaxStackSize+1)
}

func TestLogFileRotation(t *testing.T) {
	dir := t.TempDir()
	l := logging.New("rot", logging.Config{Folder: dir, MaxSize: 1}, logging.WithConsole(nil))

	for i := 0; i < 2*logging.MaxStackSize; i++ {
		l.Info("fill")
	}

	entries, err := os.ReadDir(filepath.Join(dir, "rot"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordsWithoutDirectory(t *testing.T) {
	l := logging.New("test", logging.Config{}, logging.WithConsole(nil))
	_, err := l.Records(1)
	assert.ErrorIs(t, err, logging.ErrNoLogFiles)
	assert.NoError(t, l.Close())
}

func TestDiscard(t *testing.T) {
	l := logging.Discard()
	l.Error("nothing", fmt.Errorf("boom"))
	assert.NoError(t, l.Close())
}
