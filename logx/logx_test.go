package logx

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel)

	log.Info().Msg("quiet")
	assert.Empty(t, buf.String())

	log.Warn().Str("fen", "8/8/8/8/8/8/8/8").Msg("loud")
	out := buf.String()
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "fen=")
	assert.Contains(t, out, "logx_test.go:")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, zerolog.InfoLevel), "engine")
	log.Info().Msg("ready")
	assert.Contains(t, buf.String(), "component=engine")
	assert.Contains(t, buf.String(), "ready")
}

func TestCallerIsShortFileName(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel)
	log.Info().Msg("where")
	assert.Contains(t, buf.String(), "logx_test.go:")
	assert.NotContains(t, buf.String(), "/logx/logx_test.go")
}
