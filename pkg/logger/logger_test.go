package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_StampsServiceAndComponent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Service: "storefront-serve", Output: &buf})
	hubLog := For(log, "hub")
	hubLog.Debug().Str("session_id", "s-1").Msg("session attached")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "storefront-serve", line["service"])
	assert.Equal(t, "hub", line["component"])
	assert.Equal(t, "s-1", line["session_id"])
	assert.Equal(t, "debug", line["level"])
}

func TestInit_OnlyFirstCallCounts(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "warn", Output: &first})
	log := Init(Options{Level: "debug", Output: &second})

	log.Info().Msg("below warn")
	log.Warn().Msg("kept")
	assert.Zero(t, second.Len())
	assert.Contains(t, first.String(), "kept")
	assert.NotContains(t, first.String(), "below warn")
	assert.Equal(t, zerolog.WarnLevel, Get().GetLevel())
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	assert.Panics(t, func() { Get() })
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
