package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "warn", JSON: true, Output: &buf})
	defer cleanup()

	l.Info("hidden")
	l.Warn("shown", zap.String("device_id", "d1"))
	require.NoError(t, l.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "d1", entry["device_id"])
	assert.Contains(t, entry, "ts")
}

func TestBuild_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, _ := Build(Options{Level: "loud", JSON: true, Output: &buf})
	l.Debug("debug")
	l.Info("info")
	assert.NotContains(t, buf.String(), `"debug"`)
	assert.Contains(t, buf.String(), `"info"`)
}

func TestToWriterAndStdLog(t *testing.T) {
	var buf bytes.Buffer
	l, _ := Build(Options{Level: "debug", JSON: true, Output: &buf})

	w := ToWriter(l, zapcore.InfoLevel)
	_, err := w.Write([]byte("[GIN] route registered\n"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"[GIN] route registered"`)

	undo := RedirectStdLog(l, zapcore.WarnLevel)
	log.Print("from std log")
	undo()
	assert.Contains(t, buf.String(), "from std log")
}
