package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production")

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Info().Int64("violation_id", 42).Msg("approved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "approved", entry["message"])
	assert.Equal(t, "strata-violations", entry["service"])
	assert.Equal(t, "production", entry["env"])
	assert.EqualValues(t, 42, entry["violation_id"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "development")
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
