package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/iliyamo/geo-reservation/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(config.Config{Env: "test", LogLevel: "warn"}, &buf)
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept", "id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "test", line["env"])
	assert.EqualValues(t, 7, line["id"])
}

func TestNewWithWriter_UnknownLevel(t *testing.T) {
	_, err := NewWithWriter(config.Config{LogLevel: "verbose"}, &bytes.Buffer{})
	assert.Error(t, err)
}
