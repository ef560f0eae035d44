package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug")

	log.Sub("availability").Info().Msg("cache warmed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "availability", entry["component"])
	assert.Equal(t, "cache warmed", entry["message"])
}

func TestWithCallTagsCallID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug")

	log.WithCall("CA123").Info().Msg("turn handled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "CA123", entry["callId"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Debug().Msg("dropped")
	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestSilentLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "silent")
	log.Error().Msg("dropped")
	assert.Zero(t, buf.Len())
}
