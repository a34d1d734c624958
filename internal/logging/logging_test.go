package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, FormatJSON, true)
	t.Cleanup(func() { Init(false) })

	log.Debug().Str("session", "s1").Msg("reply split")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "s1", line["session"])
	assert.Equal(t, "reply split", line["message"])
	assert.True(t, DebugEnabled())
}

func TestSetup_ConsoleSuppressesDebugByDefault(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, FormatConsole, false)
	t.Cleanup(func() { Init(false) })

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, DebugEnabled())
}
