package cliutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSlogJSON(t *testing.T) {
	assert := assert.New(t)
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger, err := SetupSlog(LogOptions{LogFormat: "json", LogLevel: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "community", "g1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal("kept", line["msg"])
	assert.Equal("g1", line["community"])
	assert.Equal("WARN", line["level"])
}

func TestSetupSlogEnv(t *testing.T) {
	assert := assert.New(t)
	defer slog.SetDefault(slog.Default())
	t.Setenv("SIEVE_LOG_LEVEL", "debug")
	t.Setenv("SIEVE_LOG_FMT", "text")

	var buf bytes.Buffer
	logger, err := SetupSlog(LogOptions{Output: &buf})
	require.NoError(t, err)
	logger.Debug("hello")
	assert.Contains(buf.String(), "msg=hello")
}

func TestSetupSlogInvalid(t *testing.T) {
	assert := assert.New(t)

	_, err := SetupSlog(LogOptions{LogFormat: "xml", Output: &bytes.Buffer{}})
	assert.Error(err)

	_, err = SetupSlog(LogOptions{LogLevel: "loud", Output: &bytes.Buffer{}})
	assert.Error(err)
}
