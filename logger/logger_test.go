package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, &buf)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Error("failed: %s", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO]  shown 2")
	assert.Contains(t, out, "[ERROR] failed: boom")
	assert.Contains(t, out, "logger_test.go")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf)
	assert.False(t, l.Enabled(DEBUG))

	l.SetLevel(DEBUG)
	l.Debug("now visible")

	assert.True(t, l.Enabled(DEBUG))
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}
