package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriters(false, &buf)
	l.Debug("hidden")
	l.Info("turn started", zap.String("conv_id", "c1"))
	_ = l.Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "turn started")
	assert.Contains(t, out, "c1")
}

func TestLoggerDebug(t *testing.T) {
	var a, b bytes.Buffer
	l := NewLoggerWithWriters(true, &a, &b)
	l.Debug("visible")
	_ = l.Sync()

	assert.Contains(t, a.String(), "visible")
	assert.Contains(t, b.String(), "visible")
}
