package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Str("candidate_id", "c1").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "c1", line["candidate_id"])
	assert.Equal(t, "shown", line["message"])
}

func TestNew_ConsoleFormatAndFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := New(Options{Level: "bogus", File: file, Out: &buf})
	require.NoError(t, err)

	l.Debug().Msg("below default level")
	l.Info().Msg("started")

	assert.Contains(t, buf.String(), "started")
	assert.NotContains(t, buf.String(), "below default level")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"started"`)
}

func TestComponent(t *testing.T) {
	prev := Global
	t.Cleanup(func() { Global = prev })

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Format: FormatJSON, Out: &buf}))

	Component("engine").Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestGet_BeforeInit(t *testing.T) {
	prev := Global
	t.Cleanup(func() { Global = prev })
	Global = nil

	assert.NotNil(t, Get())
}
