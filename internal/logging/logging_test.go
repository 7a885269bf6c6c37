package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(slog.LevelError, ParseLevel(" error "))
	assert.Equal(slog.LevelInfo, ParseLevel("info"))
	assert.Equal(slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewFiltersByLevel(t *testing.T) {
	assert := assert.New(t)
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("room created", "code", "123456")
	assert.Empty(buf.String())

	logger.Warn("publish failed", "code", "123456")
	assert.Contains(buf.String(), "publish failed")
	assert.Contains(buf.String(), "123456")
}
