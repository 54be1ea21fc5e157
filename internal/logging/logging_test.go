package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "debug", "json")
	require.NoError(t, err)

	Component(logger, "profiles").WithField("profile_id", 7).Info("created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "created", entry["msg"])
	assert.Equal(t, "profiles", entry["component"])
	assert.EqualValues(t, 7, entry["profile_id"])
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "text")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponentNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Component(nil, "x").Info("dropped")
	})
}
