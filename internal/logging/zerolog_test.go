package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "WARN")

	log.Info().Msg("filtered")
	log.Warn().Str("component", "influx").Msg("backup mode")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "influx", entry["component"])
	assert.Equal(t, "backup mode", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewZerolog_DefaultLevel(t *testing.T) {
	for _, level := range []string{"", "bogus"} {
		var buf bytes.Buffer
		log := NewZerolog(&buf, level)
		log.Debug().Msg("filtered")
		log.Info().Msg("kept")
		assert.NotContains(t, buf.String(), "filtered")
		assert.Contains(t, buf.String(), "kept")
	}
}
