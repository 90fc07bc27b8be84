package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "debug", false)
	t.Cleanup(func() { Initialize("info", false) })

	Component("queue").Info("reclaimed jobs of dead worker", "count", 2)

	assert.Contains(t, buf.String(), "component=queue")
	assert.Contains(t, buf.String(), "count=2")
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "warn", false)
	t.Cleanup(func() { Initialize("info", false) })

	Log.Info("dropped")
	Log.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
