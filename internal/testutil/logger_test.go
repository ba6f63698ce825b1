package testutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureLogger_StructuredDebug(t *testing.T) {
	var buf bytes.Buffer
	CaptureLogger(&buf).Debug("mirror installed", "relation", "Family")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "mirror installed", line["msg"])
	assert.Equal(t, "Family", line["relation"])
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	logger.Error("dropped")
	assert.False(t, logger.Enabled(t.Context(), -100))
}
